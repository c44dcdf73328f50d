package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/subprocess"
)

func TestTickMountsTheReportedDevice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1.0/logical_units":
			assert.Equal(t, "modified", r.URL.Query().Get("status"))
			w.Write([]byte(`[{"id": 7, "name": "disk-a"}]`))
		case "/1.0/logical_units/7/get_mount_device_path":
			w.Write([]byte(`{"result": true, "device_path": "/dev/vg0/disk-a"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	mountPoint := t.TempDir()

	run := subprocess.NewFakeRunner()
	run.Script("", "mount", "/dev/vg0/disk-a", mountPoint)

	a := &agent{
		apiBase:    server.URL,
		mountPoint: mountPoint,
		client:     server.Client(),
		run:        run,
		log:        logrus.StandardLogger(),
	}

	require.NoError(t, a.tick(context.Background()))
}

func TestTickSkipsWhenNoModifiedUnit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	run := subprocess.NewFakeRunner()

	a := &agent{
		apiBase: server.URL,
		client:  server.Client(),
		run:     run,
		log:     logrus.StandardLogger(),
	}

	require.NoError(t, a.tick(context.Background()))
	assert.Empty(t, run.Calls())
}
