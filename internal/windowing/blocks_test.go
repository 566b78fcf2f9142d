package windowing_test

import (
	"reflect"
	"testing"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/windowing"
)

func TestGroupBlocks_Invariants(t *testing.T) {
	single := func(s int) windowing.Group {
		return windowing.Group{Kind: windowing.GroupSingleton, Start: s, End: s + 1}
	}
	tests := []struct {
		name string
		msgs []chat.Message
		want []windowing.Group
	}{
		{
			name: "valid pair: one tool",
			msgs: []chat.Message{Asst("", TC("t1")), Tool("t1", "ok")},
			want: []windowing.Group{{Kind: windowing.GroupPair, Start: 0, End: 2}},
		},
		{
			name: "parallel completeness missing (2 tools)",
			msgs: []chat.Message{Asst("", TC("t1"), TC("t2")), Tool("t1", "ok")},
			want: []windowing.Group{single(0), single(1)},
		},
		{
			name: "parallel completeness OK (2 tools), results reordered",
			msgs: []chat.Message{Asst("", TC("t1"), TC("t2")), Tool("t2", "b"), Tool("t1", "a"), User("next")},
			want: []windowing.Group{{Kind: windowing.GroupPair, Start: 0, End: 3}, single(3)},
		},
		{
			name: "extra result invalidates pair",
			msgs: []chat.Message{Asst("", TC("t1")), Tool("t1", "a"), Tool("zz", "b")},
			want: []windowing.Group{single(0), single(1), single(2)},
		},
		{
			name: "intervening message invalidates adjacency",
			msgs: []chat.Message{Asst("", TC("t1")), User("hi"), Tool("t1", "a")},
			want: []windowing.Group{single(0), single(1), single(2)},
		},
		{
			name: "plain turns are singletons",
			msgs: []chat.Message{User("a"), Asst("b")},
			want: []windowing.Group{single(0), single(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowing.GroupBlocks(tt.msgs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("groups mismatch:\n got=%+v\nwant=%+v", got, tt.want)
			}
		})
	}
}
