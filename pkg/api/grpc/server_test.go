package grpcapi

import (
	"context"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/numchain/pkg/store"
)

func startTestServer(t *testing.T) (string, func()) {
	t.Helper()
	s := store.New()
	srv := New(s)

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.grpc.Serve(lis)

	return lis.Addr().String(), func() {
		srv.grpc.Stop()
	}
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return st
}

func field(st *structpb.Struct, name string) any {
	return st.GetFields()[name].AsInterface()
}

func TestArith(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewClient(conn)
	ctx := context.Background()

	resp, err := client.Arith(ctx, mustStruct(t, map[string]any{"op": "+", "a": "9007199254740993n", "b": "1n"}))
	if err != nil {
		t.Fatalf("Arith: %v", err)
	}
	if got := field(resp, "result"); got != "9007199254740994n" {
		t.Errorf("got %v", got)
	}

	resp, err = client.Arith(ctx, mustStruct(t, map[string]any{"op": "%", "a": -7.0, "b": 2.0}))
	if err != nil {
		t.Fatalf("Arith: %v", err)
	}
	if got := field(resp, "result"); got != "-1" {
		t.Errorf("got %v", got)
	}
}

func TestArithErrors(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewClient(conn)
	ctx := context.Background()

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"division by zero", map[string]any{"op": "/", "a": "1n", "b": "0n"}, codes.InvalidArgument},
		{"mixed domains", map[string]any{"op": "*", "a": "1n", "b": 2.0}, codes.InvalidArgument},
		{"unknown op", map[string]any{"op": "^", "a": 1.0, "b": 2.0}, codes.InvalidArgument},
		{"missing operand", map[string]any{"op": "+", "a": 1.0}, codes.InvalidArgument},
		{"bad wire text", map[string]any{"op": "+", "a": "1.5n", "b": 2.0}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Arith(ctx, mustStruct(t, tt.req))
			if status.Code(err) != tt.code {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	resp, err := NewClient(conn).Classify(context.Background(), mustStruct(t, map[string]any{"value": "-0"}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if field(resp, "kind") != "number" || field(resp, "text") != "0" || field(resp, "value") != "-0" {
		t.Errorf("unexpected classification: %v", resp)
	}
	if field(resp, "isSafeInteger") != true {
		t.Errorf("-0 is a safe integer: %v", resp)
	}
}

func TestCallFunction(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewClient(conn)
	ctx := context.Background()

	resp, err := client.CallFunction(ctx, mustStruct(t, map[string]any{"name": "Math.hypot", "args": []any{3.0, 4.0}}))
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if got := field(resp, "result"); got != "5" {
		t.Errorf("got %v", got)
	}

	resp, err = client.CallFunction(ctx, mustStruct(t, map[string]any{"name": "BigInt.asUintN", "args": "[8, -1n]"}))
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if got := field(resp, "result"); got != "255n" {
		t.Errorf("got %v", got)
	}

	_, err = client.CallFunction(ctx, mustStruct(t, map[string]any{"name": "nope"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestChainLifecycle(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewClient(conn)
	ctx := context.Background()

	src := "steps:\n  - property: students\n  - index: 1\n  - property: name\n"
	ch, err := client.CreateChain(ctx, mustStruct(t, map[string]any{"chainId": "second", "sourceContents": src}))
	if err != nil {
		t.Fatalf("CreateChain: %v", err)
	}
	if field(ch, "name") != "chains/second" || field(ch, "path") != "root?.students?.[1]?.name" {
		t.Errorf("unexpected chain: %v", ch)
	}

	_, err = client.CreateChain(ctx, mustStruct(t, map[string]any{"chainId": "second", "sourceContents": src}))
	if status.Code(err) != codes.AlreadyExists {
		t.Errorf("got %v, want AlreadyExists", err)
	}
	_, err = client.CreateChain(ctx, mustStruct(t, map[string]any{"chainId": "bad", "sourceContents": "steps: 1"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("got %v, want InvalidArgument", err)
	}
	for _, id := range []string{"Second", "1st", "a/b", strings.Repeat("a", 129)} {
		_, err = client.CreateChain(ctx, mustStruct(t, map[string]any{"chainId": id, "sourceContents": src}))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("chainId %.10q: got %v, want InvalidArgument", id, err)
		}
		_, err = client.PutDocument(ctx, mustStruct(t, map[string]any{"documentId": id, "contents": "a: 1"}))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("documentId %.10q: got %v, want InvalidArgument", id, err)
		}
	}

	if _, err := client.PutDocument(ctx, mustStruct(t, map[string]any{
		"documentId": "school",
		"contents":   "students: [{name: Max Tsh}, {name: Triple H}]",
	})); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	eval, err := client.EvaluateChain(ctx, mustStruct(t, map[string]any{"chainId": "second", "document": "school"}))
	if err != nil {
		t.Fatalf("EvaluateChain: %v", err)
	}
	if field(eval, "state") != "SUCCEEDED" || field(eval, "value") != "Triple H" {
		t.Errorf("unexpected evaluation: %v", eval)
	}

	eval, err = client.EvaluateChain(ctx, mustStruct(t, map[string]any{
		"chainId": "second",
		"root":    map[string]any{"students": []any{}},
	}))
	if err != nil {
		t.Fatalf("EvaluateChain: %v", err)
	}
	if field(eval, "hasValue") != false {
		t.Errorf("expected no value: %v", eval)
	}

	list, err := client.ListChains(ctx, mustStruct(t, nil))
	if err != nil {
		t.Fatalf("ListChains: %v", err)
	}
	if n := len(list.GetFields()["chains"].GetListValue().GetValues()); n != 1 {
		t.Errorf("expected 1 chain, got %d", n)
	}

	if _, err := client.DeleteChain(ctx, mustStruct(t, map[string]any{"name": "chains/second"})); err != nil {
		t.Fatalf("DeleteChain: %v", err)
	}
	_, err = client.GetChain(ctx, mustStruct(t, map[string]any{"chainId": "second"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("got %v, want NotFound", err)
	}
	_, err = client.EvaluateChain(ctx, mustStruct(t, map[string]any{"chainId": "second"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestEvaluateStrictFailure(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewClient(conn)
	ctx := context.Background()

	src := "steps:\n  - property: Math\n  - property: nope\n    strict: true\n  - call: []\n"
	if _, err := client.CreateChain(ctx, mustStruct(t, map[string]any{"chainId": "nope", "sourceContents": src})); err != nil {
		t.Fatalf("CreateChain: %v", err)
	}

	eval, err := client.EvaluateChain(ctx, mustStruct(t, map[string]any{"chainId": "nope", "globals": true}))
	if err != nil {
		t.Fatalf("EvaluateChain: %v", err)
	}
	if field(eval, "state") != "SUCCEEDED" || field(eval, "hasValue") != false {
		t.Errorf("missing method should short-circuit the call: %v", eval)
	}

	eval, err = client.EvaluateChain(ctx, mustStruct(t, map[string]any{"chainId": "nope", "globals": true, "strict": true}))
	if err != nil {
		t.Fatalf("EvaluateChain: %v", err)
	}
	e, _ := field(eval, "error").(map[string]any)
	if field(eval, "state") != "FAILED" || e["kind"] != "PropertyNotFound" {
		t.Errorf("unexpected evaluation: %v", eval)
	}
}
