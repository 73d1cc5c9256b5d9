package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-robot-dashboard/internal/application/relay"
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/realtime"
)

type fakeLink struct {
	connected    bool
	disconnects  int
	reconnects   int
	dispatched   map[string]any
	lastStatus   realtime.ConnectionStatus
	widgetsCount int
}

func (f *fakeLink) IsConnected() bool    { return f.connected }
func (f *fakeLink) Address() string      { return "ws://robot:5005/ws" }
func (f *fakeLink) Channels() []string   { return []string{"BatteryLvl"} }
func (f *fakeLink) Disconnect()          { f.disconnects++ }
func (f *fakeLink) Reconnect()           { f.reconnects++ }
func (f *fakeLink) ConnectionCount() int { return f.widgetsCount }

func (f *fakeLink) LastStatus() realtime.ConnectionStatus { return f.lastStatus }

func (f *fakeLink) Dispatch(channel string, payload any) error {
	switch channel {
	case realtime.ChannelMessage, realtime.ChannelSave, realtime.ChannelLoad:
		f.dispatched[channel] = payload
		return nil
	}
	return relay.ErrUnknownCommand
}

func newTestRouter(f *fakeLink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	InitLinkRouter(NewLinkHandler(f, f, f, logger.NewNopLogger()), r.Group(""))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLinkHandler_GetStatus(t *testing.T) {
	f := &fakeLink{connected: true, lastStatus: realtime.StatusConnected, widgetsCount: 2}
	rec := do(newTestRouter(f), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, StatusResponse{
		Status:    realtime.StatusConnected,
		Connected: true,
		Address:   "ws://robot:5005/ws",
		Channels:  []string{"BatteryLvl"},
		Widgets:   2,
	}, got)
}

func TestLinkHandler_SendCommand(t *testing.T) {
	f := &fakeLink{dispatched: map[string]any{}}
	r := newTestRouter(f)

	rec := do(r, http.MethodPost, "/api/v1/commands/save", `{"data":{"rows":[1,2]}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, map[string]any{"rows": []any{float64(1), float64(2)}}, f.dispatched["save"])

	rec = do(r, http.MethodPost, "/api/v1/commands/message", `{"data":"x"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "x", f.dispatched["message"])

	rec = do(r, http.MethodPost, "/api/v1/commands/reboot", `{"data":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/commands/load", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinkHandler_ConnectionActions(t *testing.T) {
	f := &fakeLink{}
	r := newTestRouter(f)

	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/v1/connection/disconnect", "").Code)
	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/v1/connection/reconnect", "").Code)
	assert.Equal(t, 1, f.disconnects)
	assert.Equal(t, 1, f.reconnects)
}
