package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/session"
)

const testConfig = `
[pools]
sprites = 1200
images = 3200
units = 32
ai = 8
orders = 16
paths = 4
grps = 4
map_height = 8

[logging]
level = "error"

[host]
code_page = "utf-8"
`

const scenario = "../../scenarios/skirmish.lua"

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "entpool.toml")
	require.NoError(t, os.WriteFile(p, []byte(testConfig), 0o644))
	return p
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"-c", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func generate(t *testing.T, cfg string) string {
	t.Helper()
	save := filepath.Join(t.TempDir(), "save.bin")
	out, err := run(t, cfg, "gen", "--script", scenario, "--out", save)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+save)
	return save
}

func TestGenInspectVerify(t *testing.T) {
	cfg := writeConfig(t)
	save := generate(t, cfg)

	out, err := run(t, cfg, "inspect", save)
	require.NoError(t, err)
	assert.Contains(t, out, "sprites  0xffee 1")
	assert.Contains(t, out, "units    0xffec 1")
	assert.Contains(t, out, "bullets  0xffed 0")

	out, err = run(t, cfg, "verify", save)
	require.NoError(t, err)
	assert.Contains(t, out, "re-save matches")
	assert.Contains(t, out, "6/32")

	out, err = run(t, cfg, "verify", "--chunked", save)
	require.NoError(t, err)
	assert.Contains(t, out, "re-save matches")
}

func TestVerifyChunkedHonoursSaveVersion(t *testing.T) {
	cfg := writeConfig(t)
	save := generate(t, cfg)
	old := filepath.Join(t.TempDir(), "old.toml")
	require.NoError(t, os.WriteFile(old, []byte(testConfig+"save_version = 2\n"), 0o644))

	_, err := run(t, old, "verify", "--chunked", save)
	assert.ErrorContains(t, err, "units chunk rejected")
}

func TestVerifyRejectsWrongMagic(t *testing.T) {
	cfg := writeConfig(t)
	bad := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(bad, make([]byte, 10), 0o644))

	_, err := run(t, cfg, "verify", bad)
	var magic *saveerr.WrongMagicError
	assert.ErrorAs(t, err, &magic)
}

func TestGenRequiresScript(t *testing.T) {
	_, err := run(t, writeConfig(t), "gen")
	assert.ErrorContains(t, err, `"script"`)
}

func TestServeRoutes(t *testing.T) {
	cfg := writeConfig(t)
	data, err := os.ReadFile(generate(t, cfg))
	require.NoError(t, err)

	a := &app{cfgPath: cfg}
	require.NoError(t, a.setup(nil, nil))
	live, err := a.newHost()
	require.NoError(t, err)
	ts := httptest.NewServer((&server{a: a, live: live}).routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	var st session.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, 32, st.Units)

	post := func(body []byte) (int, verifyReport) {
		resp, err := http.Post(ts.URL+"/verify", "application/octet-stream", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var rep verifyReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
		return resp.StatusCode, rep
	}
	code, rep := post(data)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, rep.Matching)
	assert.Equal(t, "ok", rep.Reason)
	assert.Len(t, rep.Blake2b, 64)

	code, rep = post(make([]byte, 10))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "format", rep.Reason)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "entpool_chunk_payload_bytes")
	assert.Contains(t, string(body), "entpool_pool_slots_used")
}
