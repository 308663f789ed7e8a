package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/internal/daemon"
	"github.com/dfaust/backup-monitor/internal/duration"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/scheduler"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSink struct {
	mu     sync.Mutex
	events []daemon.Event
	closed bool
}

func (f *fakeSink) Push(ev daemon.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeSink) Events() []daemon.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]daemon.Event(nil), f.events...)
}

type fakeViews struct {
	view *scheduler.View
}

func (f *fakeViews) View() *scheduler.View { return f.view }

type fakeHistory struct {
	job   string
	limit int
	runs  []history.Run
}

func (f *fakeHistory) List(_ context.Context, job string, limit int) ([]history.Run, error) {
	f.job, f.limit = job, limit
	return f.runs, nil
}

type testEnv struct {
	api    *API
	sink   *fakeSink
	hist   *fakeHistory
	hub    *tray.Hub
	http   *httptest.Server
	client *jrpc2.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	last := t0.Add(-2 * time.Hour)
	snap := settings.Default()
	snap.Jobs = []settings.Job{
		{
			Name:              "home",
			BackupScript:      "#!/bin/sh\nrestic backup ~\n",
			Interval:          duration.Duration(24 * time.Hour),
			Reminder:          duration.Duration(7 * 24 * time.Hour),
			MountPaths:        []string{"/mnt/backup"},
			LastBackup:        &last,
			PostBackupActions: []settings.PostBackupAction{{Label: "Unmount", Script: "umount /mnt/backup"}},
		},
		{Name: "media", BackupScript: "rsync -a /media /mnt/nas", Schedule: "0 3 * * *", EnvFile: "/etc/media.env"},
	}
	env := &testEnv{
		sink: &fakeSink{},
		hist: &fakeHistory{},
		hub:  tray.NewHub(nil),
	}
	env.api = &API{
		Version:  VersionInfo{Version: "1.2.0", Commit: "abc123"},
		Events:   env.sink,
		Settings: settings.NewStore(snap),
		Views: &fakeViews{view: &scheduler.View{
			At:      t0,
			Tooltip: "home:\nLast backup was 2h ago",
			Mounts:  []string{"/"},
			Jobs: []scheduler.JobView{
				{
					Name:       "home",
					State:      scheduler.WaitingFor([]string{"/mnt/backup"}),
					LastBackup: &last,
					Attempts:   3,
				},
				{
					Name:       "media",
					State:      scheduler.FailedAt(t0, "media failed with exit code 23"),
					NextBackup: t0.Add(time.Hour),
				},
			},
		}},
		History: env.hist,
	}
	srv := New(env.api, env.hub, nil)
	env.http = httptest.NewServer(srv.Handler())
	env.client = jrpc2.NewClient(jhttp.NewChannel(env.http.URL+RPCPath, nil), nil)
	t.Cleanup(func() {
		env.client.Close()
		env.http.Close()
		srv.Close()
	})
	return env
}

func (e *testEnv) call(t *testing.T, method string, params, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return e.client.CallResult(ctx, method, params, result)
}

func errorCode(err error) jrpc2.Code {
	var e *jrpc2.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func TestSystemGetVersion(t *testing.T) {
	env := newTestEnv(t)
	var v common.VersionResponse
	if err := env.call(t, common.MethodVersion, nil, &v); err != nil {
		t.Fatal(err)
	}
	if v.Version != "1.2.0" || v.Commit != "abc123" {
		t.Errorf("unexpected version %+v", v)
	}
}

func TestJobRun(t *testing.T) {
	env := newTestEnv(t)
	var resp common.RunResponse
	if err := env.call(t, common.MethodJobRun, common.RunParams{Job: "home"}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Job != "home" || resp.Attempts != 3 || resp.Ticket != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if err := env.call(t, common.MethodJobRun, common.RunParams{Job: "home"}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ticket != 2 {
		t.Errorf("expected second request to get ticket 2, got %d", resp.Ticket)
	}
	events := env.sink.Events()
	if len(events) != 2 || events[0] != (daemon.ManualRun{Name: "home"}) {
		t.Errorf("expected manual run events, got %#v", events)
	}
}

func TestJobRun_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		job    string
		closed bool
		code   jrpc2.Code
	}{
		{"unknown job", "nope", false, codeUnknownJob},
		{"missing job", "", false, codeInvalidParams},
		{"shutting down", "home", true, codeStopping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.sink.closed = tt.closed
			err := env.call(t, common.MethodJobRun, common.RunParams{Job: tt.job}, &common.RunResponse{})
			if code := errorCode(err); code != tt.code {
				t.Fatalf("expected code %d, got %v", tt.code, err)
			}
			if len(env.sink.Events()) != 0 {
				t.Error("rejected run must not queue an event")
			}
		})
	}
}

func TestJobList(t *testing.T) {
	env := newTestEnv(t)
	var resp common.ListResponse
	if err := env.call(t, common.MethodJobList, nil, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(resp.Jobs))
	}
	home, media := resp.Jobs[0], resp.Jobs[1]
	if home.Interval != "1day" || home.Reminder != "7days" || home.PayloadKind != "interpreted" {
		t.Errorf("unexpected home job %+v", home)
	}
	if len(home.Actions) != 1 || home.Actions[0] != "Unmount" {
		t.Errorf("unexpected actions %v", home.Actions)
	}
	if media.Schedule != "0 3 * * *" || media.Interval != "" || !media.HasEnvFile || media.PayloadKind != "shell" {
		t.Errorf("unexpected media job %+v", media)
	}
}

func TestStatusGet(t *testing.T) {
	env := newTestEnv(t)
	var resp common.StatusResponse
	if err := env.call(t, common.MethodStatus, nil, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Backup" || resp.Tooltip != "home:\nLast backup was 2h ago" {
		t.Errorf("unexpected status %+v", resp)
	}
	home, media := resp.Jobs[0], resp.Jobs[1]
	if home.State != "waiting-for-paths" || len(home.Missing) != 1 || home.NextBackup != nil || home.Attempts != 3 {
		t.Errorf("unexpected home status %+v", home)
	}
	if media.State != "failed" || media.FailedAt == nil || !media.FailedAt.Equal(t0) {
		t.Errorf("unexpected media status %+v", media)
	}
	if media.NextBackup == nil || !media.NextBackup.Equal(t0.Add(time.Hour)) {
		t.Errorf("unexpected next backup %v", media.NextBackup)
	}
}

func TestSettingsReload(t *testing.T) {
	env := newTestEnv(t)
	if err := env.call(t, common.MethodSettingsReload, nil, &common.EmptyResponse{}); err != nil {
		t.Fatal(err)
	}
	events := env.sink.Events()
	if len(events) != 1 || events[0] != (daemon.SettingsChanged{}) {
		t.Errorf("expected settings changed event, got %#v", events)
	}
}

func TestHistoryList(t *testing.T) {
	env := newTestEnv(t)
	env.hist.runs = []history.Run{{ID: "r1", Job: "home", Kind: history.KindBackup, Outcome: "success", Started: t0}}

	var resp common.HistoryResponse
	if err := env.call(t, common.MethodHistoryList, common.HistoryParams{Job: "home"}, &resp); err != nil {
		t.Fatal(err)
	}
	if env.hist.job != "home" || env.hist.limit != history.DefaultLimit {
		t.Errorf("unexpected query job=%q limit=%d", env.hist.job, env.hist.limit)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].ID != "r1" || resp.Entries[0].Outcome != "success" {
		t.Errorf("unexpected entries %+v", resp.Entries)
	}
}

func TestHistoryList_Disabled(t *testing.T) {
	env := newTestEnv(t)
	env.api.History = nil
	err := env.call(t, common.MethodHistoryList, common.HistoryParams{}, &common.HistoryResponse{})
	if code := errorCode(err); code != codeHistoryDisabled {
		t.Fatalf("expected code %d, got %v", codeHistoryDisabled, err)
	}
}

type wsMessage struct {
	ID     json.RawMessage  `json:"id"`
	Method string           `json:"method"`
	Params common.TrayState `json:"params"`
	Result json.RawMessage  `json:"result"`
}

func readWS(t *testing.T, ctx context.Context, conn *cws.Conn) wsMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m wsMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func TestTrayWebsocket(t *testing.T) {
	env := newTestEnv(t)
	env.hub.SetAppearance("Backup", "backup")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + TrayPath
	conn, _, err := cws.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	first := readWS(t, ctx, conn)
	if first.Method != common.NotifyTrayUpdate || first.Params.Title != "Backup" {
		t.Fatalf("expected initial tray state, got %+v", first)
	}

	env.hub.Update(tray.Data{Status: tray.NeedsAttention})
	second := readWS(t, ctx, conn)
	if second.Method != common.NotifyTrayUpdate || second.Params.Status != string(tray.NeedsAttention) {
		t.Fatalf("expected pushed status change, got %+v", second)
	}

	req := `{"jsonrpc":"2.0","id":1,"method":"job.run","params":{"job":"media"}}`
	if err := conn.Write(ctx, cws.MessageText, []byte(req)); err != nil {
		t.Fatal(err)
	}
	reply := readWS(t, ctx, conn)
	if string(reply.ID) != "1" || len(reply.Result) == 0 {
		t.Fatalf("expected job.run reply, got %+v", reply)
	}
	events := env.sink.Events()
	if len(events) != 1 || events[0] != (daemon.ManualRun{Name: "media"}) {
		t.Errorf("expected manual run from tray, got %#v", events)
	}
}

func TestTrayWebsocket_UnregistersOnClose(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + TrayPath
	conn, _, err := cws.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	readWS(t, ctx, conn)
	if env.hub.Count() != 1 {
		t.Fatalf("expected one frontend, got %d", env.hub.Count())
	}
	conn.Close(cws.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("frontend was not unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServe_UnixSocket(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "bm.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(env.api, env.hub, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, l) }()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}
