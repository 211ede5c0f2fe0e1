package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockRemote struct {
	err error
}

func (m *mockRemote) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockRemote{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("Status = %s, want %s", report.Status, Healthy)
	}
	if report.Checks["database"] != CheckOK || report.Checks["vision"] != CheckOK {
		t.Errorf("Checks = %v, want all ok", report.Checks)
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("connection refused")}, &mockRemote{})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("Status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["database"] != CheckError {
		t.Errorf("database check = %s, want %s", report.Checks["database"], CheckError)
	}
}

func TestCheck_RemoteDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockRemote{err: errors.New("unavailable")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("Status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["vision"] != CheckError {
		t.Errorf("vision check = %s, want %s", report.Checks["vision"], CheckError)
	}
}

func TestCheck_NilRemoteSkipped(t *testing.T) {
	svc := New(&mockPinger{}, nil)

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("Status = %s, want %s", report.Status, Healthy)
	}
	if _, ok := report.Checks["vision"]; ok {
		t.Error("vision check present with nil remote")
	}
}
