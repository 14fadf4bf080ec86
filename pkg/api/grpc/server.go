// Package grpcapi implements the numchain.v1.Engine gRPC service. Requests
// and responses are google.protobuf.Struct messages whose fields mirror the
// REST API bodies; numbers travel as wire text strings.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/parser"
	"github.com/lemonberrylabs/numchain/pkg/stdlib"
	"github.com/lemonberrylabs/numchain/pkg/store"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "numchain.v1.Engine"

// EngineServer is the server API of the Engine service.
type EngineServer interface {
	Arith(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CallFunction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChains(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type handlerFunc func(*Server, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(*Server), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(*Server), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Arith", (*Server).Arith),
		method("Classify", (*Server).Classify),
		method("CallFunction", (*Server).CallFunction),
		method("CreateChain", (*Server).CreateChain),
		method("GetChain", (*Server).GetChain),
		method("ListChains", (*Server).ListChains),
		method("DeleteChain", (*Server).DeleteChain),
		method("PutDocument", (*Server).PutDocument),
		method("EvaluateChain", (*Server).EvaluateChain),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "numchain/v1/engine.proto",
}

// Server implements the Engine gRPC service.
type Server struct {
	store   *store.Store
	funcs   *stdlib.Registry
	globals host.Value
	grpc    *grpc.Server
}

var _ EngineServer = (*Server)(nil)

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store) *Server {
	funcs := stdlib.NewRegistry()
	srv := &Server{
		store:   s,
		funcs:   funcs,
		globals: funcs.Globals(),
	}

	gs := grpc.NewServer()
	gs.RegisterService(&serviceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// --- Numeric methods ---

func (s *Server) Arith(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opName := stringField(req, "op")
	op, ok := numeric.ParseOp(opName)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown operator '%s'", opName)
	}
	a, err := numberField(req, "a")
	if err != nil {
		return nil, err
	}
	b, err := numberField(req, "b")
	if err != nil {
		return nil, err
	}

	result, err := numeric.Apply(op, a, b)
	if err != nil {
		return nil, engineStatus(err)
	}
	return newStruct(map[string]any{"result": result.String()})
}

func (s *Server) Classify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := numberField(req, "value")
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{
		"value":         v.String(),
		"kind":          v.Kind().String(),
		"text":          v.Text(),
		"isNaN":         numeric.IsNaN(v),
		"isFinite":      numeric.IsFinite(v),
		"isInteger":     numeric.IsInteger(v),
		"isSafeInteger": numeric.IsSafeInteger(v),
	})
}

// CallFunction calls a library function. args is either a list of JSON
// values or a string holding a YAML flow sequence such as "[8, 255n]".
func (s *Server) CallFunction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(req, "name")
	if !s.funcs.Has(name) {
		return nil, status.Errorf(codes.NotFound, "%v '%s'", stdlib.ErrUnknownFunction, name)
	}
	args, err := callArgs(req.GetFields()["args"])
	if err != nil {
		return nil, err
	}

	result, err := s.funcs.CallFunction(name, args)
	if err != nil {
		return nil, engineStatus(err)
	}
	out, err := plain(result)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{"result": out})
}

// --- Chains ---

func (s *Server) CreateChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	chainID := stringField(req, "chainId")
	if chainID == "" {
		return nil, status.Error(codes.InvalidArgument, "chainId is required")
	}
	if !store.ValidID(chainID) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid chain ID '%s'", chainID)
	}
	src := stringField(req, "sourceContents")
	if src == "" {
		return nil, status.Error(codes.InvalidArgument, "sourceContents is required")
	}

	// Validate by parsing
	def, err := parser.Parse([]byte(src))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid chain descriptor: %v", err)
	}

	description := stringField(req, "description")
	if description == "" {
		description = def.Description
	}
	ch, err := s.store.CreateChain(chainID, src, description, def.Chain)
	if err != nil {
		return nil, storeStatus(err)
	}
	return chainToStruct(ch)
}

func (s *Server) GetChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ch, err := s.store.GetChain(chainName(req))
	if err != nil {
		return nil, storeStatus(err)
	}
	return chainToStruct(ch)
}

func (s *Server) ListChains(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	chains := s.store.ListChains()
	items := make([]any, len(chains))
	for i, ch := range chains {
		items[i] = chainFields(ch)
	}
	return newStruct(map[string]any{"chains": items})
}

func (s *Server) DeleteChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.store.DeleteChain(chainName(req)); err != nil {
		return nil, storeStatus(err)
	}
	return newStruct(map[string]any{"done": true})
}

// --- Documents ---

// PutDocument stores a document given as "contents" (YAML or JSON text) or
// as a structured "value".
func (s *Server) PutDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "documentId")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "documentId is required")
	}
	if !store.ValidID(id) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid document ID '%s'", id)
	}

	var value host.Value
	var err error
	if contents := stringField(req, "contents"); contents != "" {
		value, err = host.FromYAML([]byte(contents))
	} else {
		value, err = host.ValueOf(req.GetFields()["value"].AsInterface())
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
	}

	doc := s.store.PutDocument(id, value)
	return newStruct(map[string]any{
		"name":       doc.Name,
		"revisionId": doc.RevisionID,
	})
}

// --- Evaluation ---

// EvaluateChain evaluates a stored chain against one of "root" (structured
// value), "rootYaml", "document" or "globals".
func (s *Server) EvaluateChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := chainName(req)
	fields := req.GetFields()

	root := host.Undefined
	docName := ""
	var err error
	switch {
	case fields["root"] != nil:
		root, err = host.ValueOf(fields["root"].AsInterface())
	case stringField(req, "rootYaml") != "":
		root, err = host.FromYAML([]byte(stringField(req, "rootYaml")))
	case stringField(req, "document") != "":
		docName = store.DocumentName(stringField(req, "document"))
		doc, derr := s.store.GetDocument(docName)
		if derr != nil {
			return nil, storeStatus(derr)
		}
		root = doc.Value
	case fields["globals"].GetBoolValue():
		root = s.globals
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid root: %v", err)
	}

	eval, value, err := s.store.RunEvaluation(name, docName, root, fields["strict"].GetBoolValue())
	if err != nil {
		return nil, storeStatus(err)
	}

	out := map[string]any{
		"name":            eval.Name,
		"state":           string(eval.State),
		"hasValue":        eval.HasValue,
		"steps":           eval.Steps,
		"chainRevisionId": eval.ChainRevisionID,
	}
	if eval.HasValue {
		if out["value"], err = plain(value); err != nil {
			return nil, err
		}
	}
	if eval.Error != nil {
		out["error"] = map[string]any{"kind": eval.Error.Kind, "message": eval.Error.Message}
	}
	return newStruct(out)
}

// --- Internal helpers ---

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// numberField reads a number given as wire text or as a JSON number.
func numberField(req *structpb.Struct, name string) (numeric.Value, error) {
	f, ok := req.GetFields()[name]
	if !ok {
		return numeric.Value{}, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	switch k := f.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return numeric.Float(k.NumberValue), nil
	case *structpb.Value_StringValue:
		v, err := numeric.Parse(k.StringValue)
		if err != nil {
			return numeric.Value{}, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
		}
		return v, nil
	}
	return numeric.Value{}, status.Errorf(codes.InvalidArgument, "%s must be a number or wire text", name)
}

func callArgs(v *structpb.Value) ([]host.Value, error) {
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		list, err := host.FromYAML([]byte(k.StringValue))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid args: %v", err)
		}
		if list.Type() != host.TypeList {
			return nil, status.Error(codes.InvalidArgument, "args must be a list")
		}
		return list.AsList(), nil
	case *structpb.Value_ListValue:
		list, err := host.ValueOf(k.ListValue.AsSlice())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid args: %v", err)
		}
		return list.AsList(), nil
	}
	return nil, status.Error(codes.InvalidArgument, "args must be a list")
}

func chainName(req *structpb.Struct) string {
	if name := stringField(req, "name"); name != "" {
		return name
	}
	return store.ChainName(stringField(req, "chainId"))
}

// plain converts a host value into its JSON form, with numbers as wire
// text.
func plain(v host.Value) (any, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	return out, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return st, nil
}

func chainFields(ch *store.Chain) map[string]any {
	return map[string]any{
		"name":           ch.Name,
		"description":    ch.Description,
		"revisionId":     ch.RevisionID,
		"createTime":     ch.CreateTime.Format(time.RFC3339),
		"updateTime":     ch.UpdateTime.Format(time.RFC3339),
		"sourceContents": ch.SourceContents,
		"path":           ch.Chain.String(),
	}
}

func chainToStruct(ch *store.Chain) (*structpb.Struct, error) {
	return newStruct(chainFields(ch))
}

func engineStatus(err error) error {
	if kind := types.KindOf(err); kind != "" {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func storeStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
