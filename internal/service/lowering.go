package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/query_lowering/internal/explain"
	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/lower"
	"github.com/atlekbai/query_lowering/internal/schema"
	"github.com/atlekbai/query_lowering/internal/server"
	"github.com/atlekbai/query_lowering/internal/wire"
)

const ServiceName = "lowering.v1.LoweringService"

const (
	LowerProcedure          = "/" + ServiceName + "/Lower"
	LowerBatchProcedure     = "/" + ServiceName + "/LowerBatch"
	ExplainProcedure        = "/" + ServiceName + "/Explain"
	ListAttributesProcedure = "/" + ServiceName + "/ListAttributes"
)

// RequestIDHeader echoes the id stamped into the wire request.
const RequestIDHeader = "Request-Id"

// Defaults are the server-side settings a call starts from.
type Defaults struct {
	Limit             int
	Offset            int
	ExtrapolationMode lower.ExtrapolationMode
	BatchConcurrency  int
	ExplainTable      string
}

type LoweringService struct {
	cache    *schema.Cache
	defaults Defaults
}

func NewLoweringService(cache *schema.Cache, defaults Defaults) *LoweringService {
	if defaults.BatchConcurrency < 1 {
		defaults.BatchConcurrency = 1
	}
	return &LoweringService{cache: cache, defaults: defaults}
}

func (s *LoweringService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(LowerProcedure, connect.NewUnaryHandler(LowerProcedure, s.Lower, opts))
	mux.Handle(LowerBatchProcedure, connect.NewUnaryHandler(LowerBatchProcedure, s.LowerBatch, opts))
	mux.Handle(ExplainProcedure, connect.NewUnaryHandler(ExplainProcedure, s.Explain, opts))
	mux.Handle(ListAttributesProcedure, connect.NewUnaryHandler(ListAttributesProcedure, s.ListAttributes, opts))
	return "/" + ServiceName + "/", mux
}

// Lower lowers {"query": ..., "settings": ...} and returns {"request": ...}.
func (s *LoweringService) Lower(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	compiler, err := s.compiler(req.Msg.GetFields()["settings"])
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	q, err := decodeQuery(req.Msg.GetFields()["query"])
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("query: %w", err))
	}

	wreq, err := compile(compiler, q)
	if err != nil {
		return nil, lowerError(err)
	}
	st, err := wreq.ToStruct()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"request": structpb.NewStructValue(st),
	}})
	resp.Header().Set(RequestIDHeader, wreq.Meta.RequestID)
	return resp, nil
}

// LowerBatch lowers {"queries": [...], "settings": ...} concurrently and
// returns {"requests": [...]} in input order. The first failure fails the call.
func (s *LoweringService) LowerBatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	compiler, err := s.compiler(req.Msg.GetFields()["settings"])
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	rawQueries := req.Msg.GetFields()["queries"].GetListValue()
	if rawQueries == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("queries: expected list"))
	}
	queries := make([]*ir.Query, len(rawQueries.GetValues()))
	for i, v := range rawQueries.GetValues() {
		if queries[i], err = decodeQuery(v); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("queries[%d]: %w", i, err))
		}
	}

	slog.DebugContext(ctx, "lowering batch", "queries", len(queries), "concurrency", s.defaults.BatchConcurrency)

	results := make([]*structpb.Value, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.defaults.BatchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wreq, err := compile(compiler, q)
			if err != nil {
				return fmt.Errorf("queries[%d]: %w", i, err)
			}
			st, err := wreq.ToStruct()
			if err != nil {
				return fmt.Errorf("queries[%d]: %w", i, err)
			}
			results[i] = structpb.NewStructValue(st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, lowerError(err)
	}

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"requests": structpb.NewListValue(&structpb.ListValue{Values: results}),
	}}), nil
}

// Explain lowers like Lower and adds the SQL preview: {"request", "sql", "args"}.
func (s *LoweringService) Explain(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	compiler, err := s.compiler(req.Msg.GetFields()["settings"])
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	q, err := decodeQuery(req.Msg.GetFields()["query"])
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("query: %w", err))
	}

	wreq, err := compile(compiler, q)
	if err != nil {
		return nil, lowerError(err)
	}
	sql, args, err := explain.Build(wreq, s.defaults.ExplainTable)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	st, err := wreq.ToStruct()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	argList, err := structpb.NewList(normalizeArgs(args))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode args: %w", err))
	}

	resp := connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"request": structpb.NewStructValue(st),
		"sql":     structpb.NewStringValue(sql),
		"args":    structpb.NewListValue(argList),
	}})
	resp.Header().Set(RequestIDHeader, wreq.Meta.RequestID)
	return resp, nil
}

// ListAttributes returns the attribute-type dictionary as
// {"attributes": [{"id", "name", "type"}, ...]} ordered by name. An "id" or
// "name" field in the request narrows the result to that attribute.
func (s *LoweringService) ListAttributes(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()

	var defs []*schema.AttributeDef
	switch {
	case fields["id"] != nil:
		id, err := uuid.Parse(fields["id"].GetStringValue())
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("id: %w", err))
		}
		def := s.cache.GetByID(id)
		if def == nil {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("attribute %s not found", id))
		}
		defs = []*schema.AttributeDef{def}
	case fields["name"] != nil:
		name := fields["name"].GetStringValue()
		def := s.cache.Get(name)
		if def == nil {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("attribute %q not found", name))
		}
		defs = []*schema.AttributeDef{def}
	default:
		defs = s.cache.List()
	}

	items := make([]*structpb.Value, len(defs))
	for i, d := range defs {
		items[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":   structpb.NewStringValue(d.ID.String()),
			"name": structpb.NewStringValue(d.Name),
			"type": structpb.NewStringValue(string(d.Type)),
		}})
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"attributes": structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}), nil
}

// compiler builds a compiler from the server defaults, the current dictionary
// and any per-call overrides.
func (s *LoweringService) compiler(raw *structpb.Value) (*lower.Compiler, error) {
	settings := lower.Settings{
		AttributeTypes:    s.cache.Types(),
		DefaultLimit:      s.defaults.Limit,
		DefaultOffset:     s.defaults.Offset,
		ExtrapolationMode: s.defaults.ExtrapolationMode,
	}
	if err := applyOverrides(&settings, raw); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return lower.NewCompiler(settings), nil
}

func compile(c *lower.Compiler, q *ir.Query) (*wire.Request, error) {
	wreq, err := c.Compile(q)
	if err != nil {
		return nil, err
	}
	wreq.Meta.RequestID = uuid.NewString()
	return wreq, nil
}

// lowerError maps query faults to InvalidArgument and anything else to Internal.
func lowerError(err error) error {
	code := connect.CodeInternal
	if lower.IsInputError(err) {
		code = connect.CodeInvalidArgument
	}
	cerr := connect.NewError(code, err)
	if c := lower.ErrorCode(err); c != "" {
		cerr.Meta().Set(server.ErrorCodeHeader, c)
	}
	return cerr
}
