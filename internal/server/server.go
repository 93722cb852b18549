package server

import (
	"net/http"

	"connectrpc.com/connect"
)

// ErrorCodeHeader carries the stable lowering error code on failed calls.
const ErrorCodeHeader = "Lowering-Error-Code"

// ConnectService is implemented by each service to register its connect handler.
type ConnectService interface {
	RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler)
}

// Mount registers every service on mux under its path prefix.
func Mount(mux *http.ServeMux, services []ConnectService, interceptors ...connect.Interceptor) {
	for _, svc := range services {
		path, handler := svc.RegisterHandler(interceptors...)
		mux.Handle(path, handler)
	}
}
