package feed

import (
	"reflect"
	"testing"
	"time"

	"github.com/crmchat/internal/model"
)

func TestBuildItems(t *testing.T) {
	parent := "m1"
	edited := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &model.ChannelSnapshot{
		Messages: []model.Message{
			{ID: "m1", SenderID: "V", PlainText: "Hello @Me, the quarterly report is ready", ContentType: model.ContentTypeText},
			{ID: "m2", SenderID: "me", Sender: &model.UserPublic{Username: "Me Myself"}, PlainText: "thanks", ContentType: model.ContentTypeText, ParentID: &parent, EditedAt: &edited},
			{ID: "local-x", SenderID: "me", PlainText: "pending", IsOptimistic: true},
			{ID: "local-y", SenderID: "me", PlainText: "broken", IsFailed: true},
			{ID: "m3", SenderID: "ghost", PlainText: "who am I"},
		},
		Receipts: []model.ReadReceipt{{MessageID: "m2", UserID: "V"}, {MessageID: "m2", UserID: "me"}},
		Members: []model.ChannelMember{
			{UserID: "V", Username: "Vera Petrova", Role: model.MemberRoleAdmin},
			{UserID: "me", Username: "Me"},
		},
	}
	viewer := model.Viewer{ID: "me", Name: "Me"}

	items := BuildItems(snap, viewer, map[string]bool{"m1": true})
	if len(items) != 5 {
		t.Fatalf("items: %d", len(items))
	}

	first := items[0]
	if first.Index != 1 || first.Author != "Vera Petrova" || first.Initials != "VP" || first.Role != model.MemberRoleAdmin {
		t.Fatalf("first item: %#v", first)
	}
	if !first.MentionsViewer || !first.Selected || first.Status != StatusNone {
		t.Fatalf("first item flags: %#v", first)
	}
	if want := []Action{ActionReply, ActionForward, ActionSelect}; !reflect.DeepEqual(first.Actions, want) {
		t.Fatalf("actions on others' message: %v", first.Actions)
	}

	mine := items[1]
	if !mine.Mine || !mine.Edited || mine.Status != StatusRead || mine.Author != "Me Myself" {
		t.Fatalf("own item: %#v", mine)
	}
	if !reflect.DeepEqual(mine.Readers, []string{"Vera Petrova"}) {
		t.Fatalf("readers: %v", mine.Readers)
	}
	if mine.Reply == nil || mine.Reply.Author != "Vera Petrova" || mine.Reply.Missing {
		t.Fatalf("reply preview: %#v", mine.Reply)
	}
	if !mine.Can(ActionEdit) || !mine.Can(ActionDelete) {
		t.Fatalf("own message actions: %v", mine.Actions)
	}

	if items[2].Status != StatusSending || len(items[2].Actions) != 0 {
		t.Fatalf("optimistic item: %#v", items[2])
	}
	if items[3].Status != StatusFailed || !reflect.DeepEqual(items[3].Actions, []Action{ActionRetry}) {
		t.Fatalf("failed item: %#v", items[3])
	}
	if items[4].Author != unknownUser {
		t.Fatalf("missing name must fall back: %q", items[4].Author)
	}
}

func TestActionsDeletePermission(t *testing.T) {
	m := &model.Message{ID: "m1", SenderID: "other", ContentType: model.ContentTypeText}
	plain := actionsFor(m, model.Viewer{ID: "me"})
	admin := actionsFor(m, model.Viewer{ID: "me", Permissions: model.UserPermissions{DeleteOthersMessages: true}})

	contains := func(acts []Action, a Action) bool {
		for _, x := range acts {
			if x == a {
				return true
			}
		}
		return false
	}
	if contains(plain, ActionDelete) || contains(plain, ActionEdit) {
		t.Fatalf("plain viewer must not delete or edit others: %v", plain)
	}
	if !contains(admin, ActionDelete) || contains(admin, ActionEdit) {
		t.Fatalf("moderator may delete but not edit: %v", admin)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\n c", 10); got != "a b c" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("абвгдежзик", 5); got != "абвг…" {
		t.Fatalf("got %q", got)
	}
}
