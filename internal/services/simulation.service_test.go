package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memviz/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, r)
}

func (l *requestLog) All() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]recordedRequest, len(l.requests))
	copy(out, l.requests)
	return out
}

func newSimulationServer(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		log.add(rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, log
}

func TestSimulationClient_Start(t *testing.T) {
	server, requests := newSimulationServer(t, http.StatusOK, `{
		"status": "success",
		"message": "Simulation started",
		"initial_state": {
			"technique": "paging",
			"memory_size": 256,
			"page_size": 64,
			"total_frames": 4,
			"memory": [{"status": "allocated", "id": 1}, {"status": "free", "id": null}, null, {"status": "free"}],
			"page_faults": 0,
			"page_hits": 0,
			"memory_accesses": 0,
			"operations": []
		}
	}`)
	client := NewSimulationClient(server.URL+"/", time.Second)

	snap, err := client.Start(context.Background(), StartRequest{Technique: "paging", MemorySize: intPtr(256), PageSize: intPtr(64), Algorithm: "FIFO"})
	require.NoError(t, err)

	assert.Equal(t, 4, snap.TotalFrames)
	assert.Equal(t, 1, snap.AllocatedFrames())
	assert.Equal(t, models.ProcessID("1"), snap.Memory[0].ID)
	assert.Nil(t, snap.Memory[2])

	require.Len(t, requests.All(), 1)
	req := requests.All()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/start_simulation", req.Path)
	assert.Equal(t, float64(256), req.Body["memory_size"])
	assert.Equal(t, "FIFO", req.Body["algorithm"])
}

func TestSimulationClient_AdvanceSendsOnlyRelevantField(t *testing.T) {
	server, requests := newSimulationServer(t, http.StatusOK, `{"status": "success", "state": {"operations": [{"type": "access", "address": 70, "result": "hit"}]}}`)
	client := NewSimulationClient(server.URL, time.Second)

	_, err := client.Advance(context.Background(), StepRequest{Operation: models.OperationAllocate, Size: intPtr(128), Address: intPtr(5)})
	require.NoError(t, err)
	snap, err := client.Advance(context.Background(), StepRequest{Operation: models.OperationAccess, Size: intPtr(128), Address: intPtr(70)})
	require.NoError(t, err)

	sent := requests.All()
	require.Len(t, sent, 2)
	assert.Equal(t, "/api/next_step", sent[0].Path)
	assert.Equal(t, map[string]interface{}{"operation": "allocate", "size": float64(128)}, sent[0].Body)
	assert.Equal(t, map[string]interface{}{"operation": "access", "address": float64(70)}, sent[1].Body)

	op, ok := snap.LatestOperation()
	require.True(t, ok)
	assert.Equal(t, models.AccessHit, op.Result)
}

func TestSimulationClient_ServiceError(t *testing.T) {
	server, _ := newSimulationServer(t, http.StatusBadRequest, `{"status": "error", "message": "No active simulation"}`)
	client := NewSimulationClient(server.URL, time.Second)

	_, err := client.Advance(context.Background(), StepRequest{Operation: models.OperationAccess, Address: intPtr(1)})

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "No active simulation", svcErr.Message)
}

func TestSimulationClient_MalformedResponse(t *testing.T) {
	server, _ := newSimulationServer(t, http.StatusInternalServerError, `<html>Internal Server Error</html>`)
	client := NewSimulationClient(server.URL, time.Second)

	err := client.Reset(context.Background())

	require.Error(t, err)
	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr))
	assert.Contains(t, err.Error(), "/api/reset_simulation")
}

func TestSimulationClient_UnreachableService(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewSimulationClient(url, time.Second)
	_, err := client.Start(context.Background(), StartRequest{MemorySize: intPtr(64), PageSize: intPtr(64)})

	require.Error(t, err)
	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr))
}

func TestSimulationClient_MissingStateIsEmptySnapshot(t *testing.T) {
	server, _ := newSimulationServer(t, http.StatusOK, `{"status": "success"}`)
	client := NewSimulationClient(server.URL, time.Second)

	snap, err := client.Advance(context.Background(), StepRequest{Operation: models.OperationAccess, Address: intPtr(1)})

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Empty(t, snap.Memory)
	assert.Equal(t, 0, snap.OperationCount())
}

func TestSimulationClient_Results(t *testing.T) {
	server, requests := newSimulationServer(t, http.StatusOK, `{"status": "success", "results": {"page_faults": 3, "memory_accesses": 4, "page_hits": 1, "hit_ratio": 0.25, "miss_ratio": 0.75, "memory_utilization": 50.0, "allocated_frames": 2, "total_frames": 4}}`)
	client := NewSimulationClient(server.URL, time.Second)

	results, err := client.Results(context.Background())

	require.NoError(t, err)
	sent := requests.All()
	require.Len(t, sent, 1)
	assert.Equal(t, http.MethodGet, sent[0].Method)
	assert.Equal(t, "/api/get_results", sent[0].Path)
	assert.Equal(t, 3, results.PageFaults)
	assert.Equal(t, 0.25, results.HitRatio)
	assert.Equal(t, 4, results.TotalFrames)
}

func TestStartRequest_Validate(t *testing.T) {
	assert.NoError(t, StartRequest{}.WithDefaults().Validate())
	assert.NoError(t, StartRequest{MemorySize: intPtr(1024), PageSize: intPtr(256)}.Validate())
	assert.Error(t, StartRequest{MemorySize: intPtr(1000), PageSize: intPtr(64)}.Validate())
	assert.Error(t, StartRequest{MemorySize: intPtr(-64), PageSize: intPtr(64)}.Validate())
	assert.Error(t, StartRequest{MemorySize: intPtr(64), PageSize: intPtr(0)}.Validate())
}

func TestStartRequest_DefaultsOnlyAbsentSizes(t *testing.T) {
	req := StartRequest{}.WithDefaults()
	assert.Equal(t, 1024, *req.MemorySize)
	assert.Equal(t, 64, *req.PageSize)
	assert.Equal(t, "paging", req.Technique)
	assert.Equal(t, "FIFO", req.Algorithm)

	req = StartRequest{MemorySize: intPtr(0), PageSize: intPtr(64)}.WithDefaults()
	assert.Equal(t, 0, *req.MemorySize)
	assert.EqualError(t, req.Validate(), "Memory size and page size must be positive")

	req = StartRequest{MemorySize: intPtr(1000), PageSize: intPtr(0)}.WithDefaults()
	assert.Equal(t, 0, *req.PageSize)
	assert.EqualError(t, req.Validate(), "Memory size and page size must be positive")
}

func TestStartRequest_DecodesExplicitZero(t *testing.T) {
	var req StartRequest
	require.NoError(t, json.Unmarshal([]byte(`{"memory_size": 0}`), &req))

	require.NotNil(t, req.MemorySize)
	assert.Nil(t, req.PageSize)
	assert.Error(t, req.WithDefaults().Validate())
}

func TestStepRequest_Validate(t *testing.T) {
	assert.NoError(t, StepRequest{Operation: models.OperationAllocate, Size: intPtr(1)}.Validate())
	assert.NoError(t, StepRequest{Operation: models.OperationDeallocate, Address: intPtr(0)}.Validate())
	assert.Error(t, StepRequest{Operation: models.OperationAllocate}.Validate())
	assert.Error(t, StepRequest{Operation: models.OperationAllocate, Size: intPtr(0)}.Validate())
	assert.Error(t, StepRequest{Operation: models.OperationAccess, Address: intPtr(-1)}.Validate())
	assert.Error(t, StepRequest{Operation: "compact"}.Validate())
}
