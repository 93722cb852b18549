package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/lower"
	"github.com/atlekbai/query_lowering/internal/schema"
	"github.com/atlekbai/query_lowering/internal/server"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cache := schema.NewCacheFromTypes(map[string]ir.PrimitiveType{
		"duration": ir.TypeFloat,
		"status":   ir.TypeStr,
		"retries":  ir.TypeInt,
	})
	svc := NewLoweringService(cache, Defaults{
		Limit:             25,
		ExtrapolationMode: lower.ExtrapolationNone,
		BatchConcurrency:  2,
		ExplainTable:      "eap_items",
	})

	mux := http.NewServeMux()
	server.Mount(mux, []server.ConnectService{svc}, server.LoggingInterceptor())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, procedure string, msg map[string]any) (*connect.Response[structpb.Struct], error) {
	t.Helper()
	st, err := structpb.NewStruct(msg)
	require.NoError(t, err)
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+procedure)
	return client.CallUnary(context.Background(), connect.NewRequest(st))
}

func avgQuery(column string) map[string]any {
	return map[string]any{
		"select": []any{map[string]any{
			"function":   "avg",
			"parameters": []any{map[string]any{"column": column}},
		}},
	}
}

func requireCode(t *testing.T, err error, code connect.Code) *connect.Error {
	t.Helper()
	require.Error(t, err)
	var cerr *connect.Error
	require.True(t, errors.As(err, &cerr), "expected connect error, got %v", err)
	require.Equal(t, code, cerr.Code(), cerr.Message())
	return cerr
}

func TestLower(t *testing.T) {
	srv := newTestServer(t)

	resp, err := call(t, srv, LowerProcedure, map[string]any{
		"query":    avgQuery("duration"),
		"settings": map[string]any{"extrapolation_mode": "weighted"},
	})
	require.NoError(t, err)

	req := resp.Msg.AsMap()["request"].(map[string]any)
	col := req["columns"].([]any)[0].(map[string]any)
	agg := col["aggregation"].(map[string]any)
	assert.Equal(t, "FUNCTION_AVERAGE", agg["aggregate"])
	assert.Equal(t, "EXTRAPOLATION_MODE_SAMPLE_WEIGHTED", agg["extrapolation_mode"])
	assert.Equal(t, map[string]any{"type": "TYPE_DOUBLE", "name": "duration"}, agg["key"])
	assert.Equal(t, float64(25), req["limit"])

	id := req["meta"].(map[string]any)["request_id"].(string)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header().Get(RequestIDHeader))
}

func TestLowerErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name      string
		msg       map[string]any
		errorCode string
	}{
		{
			name:      "unknown attribute",
			msg:       map[string]any{"query": avgQuery("missing")},
			errorCode: "UNKNOWN_ATTRIBUTE",
		},
		{
			name: "malformed filter shape",
			msg: map[string]any{"query": map[string]any{
				"select": []any{map[string]any{"column": "status"}},
				"where": []any{map[string]any{"condition": map[string]any{
					"lhs": map[string]any{"function": "exists", "parameters": []any{map[string]any{"column": "status"}}},
					"op":  "!=",
					"rhs": 1,
				}}},
			}},
			errorCode: "MALFORMED_FILTER_SHAPE",
		},
		{
			name: "empty list",
			msg: map[string]any{"query": map[string]any{
				"where": []any{map[string]any{"condition": map[string]any{
					"lhs": map[string]any{"column": "status"},
					"op":  "in",
					"rhs": []any{},
				}}},
			}},
			errorCode: "INVALID_LITERAL",
		},
		{
			name: "undecodable query",
			msg:  map[string]any{"query": map[string]any{"select": "duration"}},
		},
		{
			name: "missing query",
			msg:  map[string]any{},
		},
		{
			name: "bad settings",
			msg:  map[string]any{"query": avgQuery("duration"), "settings": map[string]any{"extrapolation_mode": "linear"}},
		},
		{
			name: "negative limit override",
			msg:  map[string]any{"query": avgQuery("duration"), "settings": map[string]any{"default_limit": -1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, srv, LowerProcedure, tt.msg)
			cerr := requireCode(t, err, connect.CodeInvalidArgument)
			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, cerr.Meta().Get(server.ErrorCodeHeader))
			}
		})
	}
}

func TestLowerBatch(t *testing.T) {
	srv := newTestServer(t)

	queries := make([]any, 5)
	for i := range queries {
		queries[i] = map[string]any{
			"select": []any{map[string]any{"column": "status"}},
			"limit":  i + 1,
		}
	}
	resp, err := call(t, srv, LowerBatchProcedure, map[string]any{"queries": queries})
	require.NoError(t, err)

	requests := resp.Msg.AsMap()["requests"].([]any)
	require.Len(t, requests, 5)
	seen := map[string]bool{}
	for i, r := range requests {
		m := r.(map[string]any)
		assert.Equal(t, float64(i+1), m["limit"], "results must keep input order")
		seen[m["meta"].(map[string]any)["request_id"].(string)] = true
	}
	assert.Len(t, seen, 5, "each request gets its own id")
}

func TestLowerBatchFailsOnFirstError(t *testing.T) {
	srv := newTestServer(t)

	_, err := call(t, srv, LowerBatchProcedure, map[string]any{"queries": []any{
		avgQuery("duration"),
		avgQuery("missing"),
	}})
	cerr := requireCode(t, err, connect.CodeInvalidArgument)
	assert.Contains(t, cerr.Message(), "queries[1]")
	assert.Equal(t, "UNKNOWN_ATTRIBUTE", cerr.Meta().Get(server.ErrorCodeHeader))

	_, err = call(t, srv, LowerBatchProcedure, map[string]any{"queries": "nope"})
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestExplain(t *testing.T) {
	srv := newTestServer(t)

	resp, err := call(t, srv, ExplainProcedure, map[string]any{"query": map[string]any{
		"select": []any{map[string]any{"column": "status"}},
		"where": []any{map[string]any{"condition": map[string]any{
			"lhs": map[string]any{"column": "status"},
			"op":  "in",
			"rhs": []any{"ok", "error"},
		}}},
	}})
	require.NoError(t, err)

	out := resp.Msg.AsMap()
	assert.Equal(t, `SELECT "status" FROM eap_items WHERE "status" IN ($1,$2) LIMIT 25`, out["sql"])
	assert.Equal(t, []any{"ok", "error"}, out["args"])
	assert.Contains(t, out, "request")
}

func TestListAttributes(t *testing.T) {
	srv := newTestServer(t)

	resp, err := call(t, srv, ListAttributesProcedure, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"id": schema.AttributeID("duration").String(), "name": "duration", "type": "float"},
		map[string]any{"id": schema.AttributeID("retries").String(), "name": "retries", "type": "int"},
		map[string]any{"id": schema.AttributeID("status").String(), "name": "status", "type": "str"},
	}, resp.Msg.AsMap()["attributes"])
}

func TestListAttributesLookup(t *testing.T) {
	srv := newTestServer(t)
	status := map[string]any{"id": schema.AttributeID("status").String(), "name": "status", "type": "str"}

	resp, err := call(t, srv, ListAttributesProcedure, map[string]any{"id": schema.AttributeID("status").String()})
	require.NoError(t, err)
	assert.Equal(t, []any{status}, resp.Msg.AsMap()["attributes"])

	resp, err = call(t, srv, ListAttributesProcedure, map[string]any{"name": "status"})
	require.NoError(t, err)
	assert.Equal(t, []any{status}, resp.Msg.AsMap()["attributes"])

	_, err = call(t, srv, ListAttributesProcedure, map[string]any{"id": schema.AttributeID("missing").String()})
	requireCode(t, err, connect.CodeNotFound)

	_, err = call(t, srv, ListAttributesProcedure, map[string]any{"name": "missing"})
	requireCode(t, err, connect.CodeNotFound)

	_, err = call(t, srv, ListAttributesProcedure, map[string]any{"id": "not-a-uuid"})
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestLowerFloatLiterals(t *testing.T) {
	srv := newTestServer(t)

	resp, err := call(t, srv, LowerProcedure, map[string]any{"query": map[string]any{
		"select": []any{map[string]any{"column": "status"}},
		"where": []any{
			map[string]any{"condition": map[string]any{
				"lhs": map[string]any{"column": "duration"},
				"op":  "in",
				"rhs": []any{1.5, 2.0},
			}},
			map[string]any{"condition": map[string]any{
				"lhs": map[string]any{"column": "duration"},
				"op":  ">",
				"rhs": 2.0,
			}},
			map[string]any{"condition": map[string]any{
				"lhs": map[string]any{"column": "retries"},
				"op":  "in",
				"rhs": []any{1, 2},
			}},
		},
	}})
	require.NoError(t, err)

	filters := resp.Msg.AsMap()["request"].(map[string]any)["filter"].(map[string]any)["and_filter"].(map[string]any)["filters"].([]any)
	require.Len(t, filters, 3)
	value := func(i int) map[string]any {
		return filters[i].(map[string]any)["comparison_filter"].(map[string]any)["value"].(map[string]any)
	}
	assert.Equal(t, map[string]any{"val_double_array": map[string]any{"values": []any{1.5, 2.0}}}, value(0))
	assert.Equal(t, map[string]any{"val_double": 2.0}, value(1))
	assert.Equal(t, map[string]any{"val_int_array": map[string]any{"values": []any{1.0, 2.0}}}, value(2))
}

func TestLowerRejectsNegativeQueryLimit(t *testing.T) {
	srv := newTestServer(t)

	q := avgQuery("duration")
	q["limit"] = -5
	_, err := call(t, srv, LowerProcedure, map[string]any{"query": q})
	cerr := requireCode(t, err, connect.CodeInvalidArgument)
	assert.Contains(t, cerr.Message(), "limit: must be non-negative")
}

func TestInternalErrorForBadServerDefaults(t *testing.T) {
	svc := NewLoweringService(schema.NewCacheFromTypes(map[string]ir.PrimitiveType{"x": ir.TypeInt}), Defaults{
		Limit:             25,
		ExtrapolationMode: "linear",
	})
	st, err := structpb.NewStruct(map[string]any{"query": map[string]any{}})
	require.NoError(t, err)

	_, err = svc.Lower(context.Background(), connect.NewRequest(st))
	cerr := requireCode(t, err, connect.CodeInternal)
	assert.Equal(t, "INVALID_SETTINGS", cerr.Meta().Get(server.ErrorCodeHeader))
}
