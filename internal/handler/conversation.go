package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"llmapp/internal/model"
	"llmapp/internal/service"
)

// ConversationHandler 对话管理处理器
type ConversationHandler struct {
	svc *service.ConversationService
}

// NewConversationHandler 创建对话管理处理器
func NewConversationHandler(svc *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// Create 创建对话
// @Summary      创建对话
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateConversationRequest  true  "创建请求"
// @Success      201      {object}  model.CreatedResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req model.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id, err := h.svc.Create(c.Request.Context(), req.Name, req.Params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.CreatedResponse{ID: id})
}

// List 获取全部对话
// @Summary      对话列表
// @Tags         对话
// @Produce      json
// @Success      200  {array}   model.Conversation
// @Failure      500  {object}  model.ErrorResponse
// @Router       /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// Get 获取对话历史消息
// @Summary      对话历史
// @Tags         对话
// @Produce      json
// @Param        id   path      string  true  "对话 ID"
// @Success      200  {array}   model.Message
// @Failure      404  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	messages := conv.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// Update 更新对话名称和参数
// @Summary      更新对话
// @Tags         对话
// @Accept       json
// @Param        id       path  string                           true  "对话 ID"
// @Param        request  body  model.UpdateConversationRequest  true  "更新请求"
// @Success      204
// @Failure      400  {object}  model.ErrorResponse
// @Failure      404  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /conversations/{id} [put]
func (h *ConversationHandler) Update(c *gin.Context) {
	var req model.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.svc.Update(c.Request.Context(), c.Param("id"), req.Name, req.Params); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete 删除对话
// @Summary      删除对话
// @Tags         对话
// @Param        id  path  string  true  "对话 ID"
// @Success      204
// @Failure      404  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitQuery 向对话提交 prompt
// @Summary      提交查询
// @Tags         查询
// @Accept       json
// @Produce      json
// @Param        request  body      model.QueryRequest  true  "查询请求"
// @Success      201      {object}  model.QueryResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /queries [post]
func (h *ConversationHandler) SubmitQuery(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	reply, err := h.svc.SubmitQuery(c.Request.Context(), req.ID, req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.QueryResponse{
		ID:      req.ID,
		Message: *reply,
	})
}
