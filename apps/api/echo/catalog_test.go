package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/michezo/core/catalog"
)

func Test_catalogApi(t *testing.T) {
	env := setup(t)
	reg := catalog.Default()

	tests := []httpTest{
		{
			name:     "queryEngines",
			method:   http.MethodGet,
			path:     "/v1/engines",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reg.Engines()),
		},
		{
			name:     "querySkins: all",
			method:   http.MethodGet,
			path:     "/v1/skins",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reg.Skins()),
		},
		{
			name:     "querySkins: filtered by engine",
			method:   http.MethodGet,
			path:     "/v1/skins?engine=ENG02",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reg.SkinsFor(catalog.EngineOperations)),
		},
		{
			name:     "querySkins: unknown engine fails",
			method:   http.MethodGet,
			path:     "/v1/skins?engine=ENG99",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: catalog.ErrEngineNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
