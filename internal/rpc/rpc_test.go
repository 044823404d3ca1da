package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	require.Equal(t, "json", codec.Name())

	desc := "billing"
	data, err := codec.Marshal(&Project{ID: "p1", Name: "Billing", Slug: "billing", Description: &desc})
	require.NoError(t, err)
	require.Contains(t, string(data), `"description":"billing"`)

	var got Project
	require.NoError(t, codec.Unmarshal(data, &got))
	require.Equal(t, "billing", *got.Description)

	var empty DeleteProjectRequest
	require.NoError(t, codec.Unmarshal(nil, &empty))

	require.Error(t, codec.Unmarshal([]byte("{"), &got))
}

// projectStub answers GetProject and fails everything else.
type projectStub struct {
	ProjectServiceHandler
	lastReq *GetProjectRequest
}

func (s *projectStub) GetProject(_ context.Context, req *connect.Request[GetProjectRequest]) (*connect.Response[GetProjectResponse], error) {
	s.lastReq = req.Msg
	if req.Msg.Slug == "missing" {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("project not found"))
	}
	return connect.NewResponse(&GetProjectResponse{Project: &Project{
		ID:        "p1",
		OrgID:     req.Msg.OrgID,
		Name:      strings.Repeat("Long Name ", 100),
		Slug:      req.Msg.Slug,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}), nil
}

func TestProjectService_roundTrip(t *testing.T) {
	stub := &projectStub{}
	path, handler := NewProjectServiceHandler(stub)
	require.Equal(t, "/tenancy.v1.ProjectService/", path)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, name := range []string{"plain", "zstd"} {
		t.Run(name, func(t *testing.T) {
			var opts []connect.ClientOption
			if name == "zstd" {
				opts = append(opts, connect.WithSendCompression(CompressionZstd))
			}
			client := NewProjectServiceClient(srv.Client(), srv.URL+"/", opts...)

			resp, err := client.GetProject(context.Background(), connect.NewRequest(&GetProjectRequest{OrgID: "o1", Slug: "web"}))
			require.NoError(t, err)
			require.Equal(t, "web", resp.Msg.Project.Slug)
			require.Equal(t, "o1", resp.Msg.Project.OrgID)
			require.Equal(t, "web", stub.lastReq.Slug)

			_, err = client.GetProject(context.Background(), connect.NewRequest(&GetProjectRequest{OrgID: "o1", Slug: "missing"}))
			require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
		})
	}
}

func TestProjectService_plainJSONPost(t *testing.T) {
	path, handler := NewProjectServiceHandler(&projectStub{})
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	r := httptest.NewRequest(http.MethodPost, GetProjectProcedure, strings.NewReader(`{"org_id":"o1","slug":"api"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"slug":"api"`)
}
