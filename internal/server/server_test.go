package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"llmapp/internal/ai"
	"llmapp/internal/config"
	"llmapp/internal/model"
	"llmapp/internal/repository"
	"llmapp/internal/repository/memory"
	"llmapp/internal/service"
)

type stubRelay struct {
	err error
}

func (r *stubRelay) Complete(_ context.Context, req *ai.CompleteRequest) (*ai.CompleteResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &ai.CompleteResponse{Content: "echo: " + req.Prompt.Content}, nil
}

type brokenAppendStore struct {
	repository.ConversationStore
}

func (s *brokenAppendStore) AppendMessages(context.Context, string, ...model.Message) error {
	return errors.New("write conflict")
}

type pingFailStore struct {
	repository.ConversationStore
}

func (s *pingFailStore) Ping(context.Context) error {
	return errors.New("no reachable servers")
}

func newTestServer(store repository.ConversationStore, relay service.Relay) *Server {
	cfg := &config.Config{Server: config.ServerConfig{Mode: "test"}}
	return NewWithService(cfg, service.NewConversationService(store, relay, 4096))
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestConversationAPI(t *testing.T) {
	Convey("对话 REST 接口", t, func() {
		relay := &stubRelay{}
		srv := newTestServer(memory.NewConversationStore(), relay)

		w := doRequest(srv, http.MethodPost, "/conversations", `{"name":"demo","params":{"temperature":"0.3"}}`)
		So(w.Code, ShouldEqual, http.StatusCreated)
		id := decode[model.CreatedResponse](w).ID
		So(id, ShouldNotBeEmpty)
		So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)

		Convey("GET 返回空历史", func() {
			w := doRequest(srv, http.MethodGet, "/conversations/"+id, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("列表返回对话", func() {
			w := doRequest(srv, http.MethodGet, "/conversations", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			convs := decode[[]model.Conversation](w)
			So(len(convs), ShouldEqual, 1)
			So(convs[0].ID, ShouldEqual, id)
			So(convs[0].Name, ShouldEqual, "demo")
			So(convs[0].Tokens, ShouldEqual, 4096)
			So(convs[0].Params, ShouldResemble, model.Params{"temperature": "0.3"})
		})

		Convey("提交查询返回 201 并写入历史", func() {
			w := doRequest(srv, http.MethodPost, "/queries", `{"id":"`+id+`","prompt":{"role":"user","content":"hello"}}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			resp := decode[model.QueryResponse](w)
			So(resp.ID, ShouldEqual, id)
			So(resp.Message.Role, ShouldEqual, model.RoleAssistant)
			So(resp.Message.Content, ShouldEqual, "echo: hello")

			w = doRequest(srv, http.MethodGet, "/conversations/"+id, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			history := decode[[]model.Message](w)
			So(len(history), ShouldEqual, 2)
			So(history[0].Content, ShouldEqual, "hello")
			So(history[1].Content, ShouldEqual, "echo: hello")
		})

		Convey("PUT 返回 204 并更新", func() {
			w := doRequest(srv, http.MethodPut, "/conversations/"+id, `{"name":"renamed","params":{"top_p":0.5}}`)
			So(w.Code, ShouldEqual, http.StatusNoContent)

			w = doRequest(srv, http.MethodGet, "/conversations", "")
			convs := decode[[]model.Conversation](w)
			So(convs[0].Name, ShouldEqual, "renamed")
			So(convs[0].Params, ShouldResemble, model.Params{"top_p": 0.5})
		})

		Convey("DELETE 返回 204，再次删除返回 404", func() {
			w := doRequest(srv, http.MethodDelete, "/conversations/"+id, "")
			So(w.Code, ShouldEqual, http.StatusNoContent)

			w = doRequest(srv, http.MethodDelete, "/conversations/"+id, "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[model.ErrorResponse](w).Code, ShouldEqual, 40401)
		})

		Convey("不存在的对话返回 404", func() {
			So(doRequest(srv, http.MethodGet, "/conversations/missing", "").Code, ShouldEqual, http.StatusNotFound)
			So(doRequest(srv, http.MethodPut, "/conversations/missing", `{"name":"x"}`).Code, ShouldEqual, http.StatusNotFound)
			So(doRequest(srv, http.MethodPost, "/queries", `{"id":"missing","prompt":{"content":"hi"}}`).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("非法请求返回 400", func() {
			So(doRequest(srv, http.MethodPost, "/conversations", `{"params":{}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(srv, http.MethodPost, "/conversations", `{"name":"`+strings.Repeat("x", 201)+`"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(srv, http.MethodPost, "/conversations", `{"name":"ok","params":{"temperature":"hot"}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(srv, http.MethodPost, "/conversations", `not json`).Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(srv, http.MethodPost, "/queries", `{"id":"`+id+`","prompt":{"role":"robot","content":"hi"}}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("LLM 失败返回 500 且历史不变", func() {
			relay.err = ai.ErrRelayFailed
			w := doRequest(srv, http.MethodPost, "/queries", `{"id":"`+id+`","prompt":{"content":"hi"}}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode[model.ErrorResponse](w).Code, ShouldEqual, 50001)

			w = doRequest(srv, http.MethodGet, "/conversations/"+id, "")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})
	})

	Convey("追加失败返回 422", t, func() {
		srv := newTestServer(&brokenAppendStore{memory.NewConversationStore()}, &stubRelay{})

		w := doRequest(srv, http.MethodPost, "/conversations", `{"name":"demo"}`)
		id := decode[model.CreatedResponse](w).ID

		w = doRequest(srv, http.MethodPost, "/queries", `{"id":"`+id+`","prompt":{"content":"hi"}}`)
		So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		So(decode[model.ErrorResponse](w).Code, ShouldEqual, 42201)
	})
}

func TestHealthAPI(t *testing.T) {
	Convey("健康检查", t, func() {
		srv := newTestServer(memory.NewConversationStore(), &stubRelay{})
		So(doRequest(srv, http.MethodGet, "/health", "").Code, ShouldEqual, http.StatusOK)
		So(doRequest(srv, http.MethodGet, "/ready", "").Code, ShouldEqual, http.StatusOK)

		broken := newTestServer(&pingFailStore{memory.NewConversationStore()}, &stubRelay{})
		So(doRequest(broken, http.MethodGet, "/ready", "").Code, ShouldEqual, http.StatusServiceUnavailable)
	})
}
