package tickets

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"tiquetera/internal/api"
	"tiquetera/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	body  string
	err   error
	paths []string
}

func (s *stubBackend) Get(_ context.Context, path string, _ url.Values, out interface{}, _ ...api.RequestOption) error {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.body), out)
}

func TestEventTickets(t *testing.T) {
	b := &stubBackend{body: myEventsJSON}
	svc := NewService(b, logger.Discard())

	ev, err := svc.EventTickets(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, ev.Tickets, 2)
	assert.Equal(t, []string{"/events/my/"}, b.paths)

	_, err = svc.EventTickets(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNoTickets)
}

func TestEventTicketsBackendFailure(t *testing.T) {
	svc := NewService(&stubBackend{err: api.ErrNetwork}, logger.Discard())
	_, err := svc.EventTickets(context.Background(), 2)
	assert.ErrorIs(t, err, api.ErrNetwork)
}

func TestSaveQR(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&stubBackend{body: myEventsJSON}, logger.Discard())
	ctx := context.Background()

	path, err := svc.SaveQR(ctx, 2, 1, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ticket-abc123.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = svc.SaveQR(ctx, 2, 2, dir)
	assert.ErrorIs(t, err, ErrQRUnavailable)

	_, err = svc.SaveQR(ctx, 2, 77, dir)
	assert.ErrorIs(t, err, ErrTicketMissing)
}

func TestQRFileNameStaysInDir(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"abc123", "ticket-abc123.png"},
		{"../../etc/x", "ticket-etcx.png"},
		{`..\..\evil`, "ticket-evil.png"},
		{"A-1_b", "ticket-A-1_b.png"},
		{"../", "ticket-9.png"},
		{"", "ticket-9.png"},
	}
	for _, tt := range tests {
		name := qrFileName(Ticket{ID: 9, UniqueCode: tt.code})
		assert.Equal(t, tt.want, name, tt.code)
		assert.Equal(t, name, filepath.Base(name))
	}
}

func TestSaveQRWithHostileCode(t *testing.T) {
	dir := t.TempDir()
	body := `[{"event": "Festival", "event_id": 2, "tickets": [
	  {"ticket_id": 5, "status": "comprada", "unique_code": "../../escape", "qr_base64": "aGVsbG8="}]}]`
	svc := NewService(&stubBackend{body: body}, logger.Discard())

	path, err := svc.SaveQR(context.Background(), 2, 5, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ticket-escape.png"), path)
	_, err = os.Stat(filepath.Join(filepath.Dir(filepath.Dir(dir)), "escape.png"))
	assert.True(t, os.IsNotExist(err))
}
