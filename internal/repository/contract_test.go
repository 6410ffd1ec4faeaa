package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"llmapp/internal/model"
	"llmapp/internal/repository"
)

// runStoreContract 所有 ConversationStore 实现共用的行为测试
func runStoreContract(t *testing.T, name string, newStore func() repository.ConversationStore) {
	Convey(name+" 对话存储行为", t, func() {
		ctx := context.Background()
		store := newStore()

		conv := &model.Conversation{
			Name:   "first",
			Params: model.Params{"temperature": "0.5"},
			Tokens: 4096,
		}
		So(store.Create(ctx, conv), ShouldBeNil)
		So(conv.ID, ShouldNotBeEmpty)

		Convey("创建后可查询，消息为空", func() {
			got, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "first")
			So(got.Tokens, ShouldEqual, 4096)
			So(got.Params["temperature"], ShouldEqual, "0.5")
			So(got.Messages, ShouldBeEmpty)
		})

		Convey("重复 ID 不会覆盖", func() {
			dup := &model.Conversation{ID: conv.ID, Name: "dup", Tokens: 1}
			So(store.Create(ctx, dup), ShouldEqual, repository.ErrDuplicateID)

			got, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "first")
		})

		Convey("不存在的 ID 返回 ErrNotFound", func() {
			_, err := store.FindByID(ctx, "missing")
			So(err, ShouldEqual, repository.ErrNotFound)
			So(store.Update(ctx, "missing", repository.ConversationUpdate{}), ShouldEqual, repository.ErrNotFound)
			So(store.AppendMessages(ctx, "missing", model.Message{Role: model.RoleUser, Content: "x"}), ShouldEqual, repository.ErrNotFound)
			So(store.Delete(ctx, "missing"), ShouldEqual, repository.ErrNotFound)
		})

		Convey("部分更新只修改提供的字段", func() {
			So(store.AppendMessages(ctx, conv.ID, model.Message{Role: model.RoleUser, Content: "hi"}), ShouldBeNil)
			So(store.Update(ctx, conv.ID, repository.ConversationUpdate{Params: model.Params{"temperature": "0.2"}}), ShouldBeNil)

			got, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "first")
			So(got.Tokens, ShouldEqual, 4096)
			So(got.Params, ShouldResemble, model.Params{"temperature": "0.2"})
			So(len(got.Messages), ShouldEqual, 1)

			name := "renamed"
			So(store.Update(ctx, conv.ID, repository.ConversationUpdate{Name: &name}), ShouldBeNil)
			got, err = store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "renamed")
			So(got.Params, ShouldResemble, model.Params{"temperature": "0.2"})
		})

		Convey("追加保持顺序", func() {
			So(store.AppendMessages(ctx, conv.ID,
				model.Message{Role: model.RoleUser, Content: "hello"},
				model.Message{Role: model.RoleAssistant, Content: "hi there"},
			), ShouldBeNil)

			got, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(got.Messages), ShouldEqual, 2)
			So(got.Messages[0].Role, ShouldEqual, model.RoleUser)
			So(got.Messages[0].Content, ShouldEqual, "hello")
			So(got.Messages[1].Role, ShouldEqual, model.RoleAssistant)
		})

		Convey("并发追加不丢失", func() {
			const workers = 10
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- store.AppendMessages(ctx, conv.ID,
						model.Message{Role: model.RoleUser, Content: fmt.Sprintf("q%d", i)},
						model.Message{Role: model.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
					)
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				So(err, ShouldBeNil)
			}

			got, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(got.Messages), ShouldEqual, workers*2)
			for i := 0; i < len(got.Messages); i += 2 {
				So(got.Messages[i].Role, ShouldEqual, model.RoleUser)
				So(got.Messages[i+1].Content, ShouldEqual, "a"+got.Messages[i].Content[1:])
			}
		})

		Convey("列表包含全部对话", func() {
			second := &model.Conversation{Name: "second", Tokens: 4096}
			So(store.Create(ctx, second), ShouldBeNil)

			list, err := store.List(ctx)
			So(err, ShouldBeNil)
			names := map[string]string{}
			for _, c := range list {
				names[c.ID] = c.Name
			}
			So(names[conv.ID], ShouldEqual, "first")
			So(names[second.ID], ShouldEqual, "second")
		})

		Convey("删除两次第二次返回 ErrNotFound", func() {
			So(store.Delete(ctx, conv.ID), ShouldBeNil)
			So(store.Delete(ctx, conv.ID), ShouldEqual, repository.ErrNotFound)
			_, err := store.FindByID(ctx, conv.ID)
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}
