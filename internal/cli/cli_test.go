package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// harness runs CLI invocations against one temporary store.
type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(envActor, "")
	return &harness{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

// exec runs args and returns stdout, stderr and the exit code.
func (h *harness) exec(args ...string) (string, string, int) {
	h.t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	all := append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...)
	code := run(root, all, &stderr)
	return stdout.String(), stderr.String(), code
}

// ok runs args, requires success and returns stdout.
func (h *harness) ok(args ...string) string {
	h.t.Helper()
	out, errOut, code := h.exec(args...)
	require.Equal(h.t, exitSuccess, code, "fieldbase %s: %s", strings.Join(args, " "), errOut)
	return out
}

// id runs args in --json mode and returns the "id" of the printed object.
func (h *harness) id(args ...string) string {
	h.t.Helper()
	var obj struct {
		ID string `json:"id"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(h.ok(append([]string{"--json"}, args...)...)), &obj))
	require.NotEmpty(h.t, obj.ID)
	return obj.ID
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.ok("version")
	assert.Contains(t, out, fieldbase.Version)
	assert.Contains(t, out, modulePath)
}

func TestInitWritesDefaultConfig(t *testing.T) {
	h := newHarness(t)
	h.ok("init")

	data, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")

	_, err = os.Stat(filepath.Join(h.dataDir, "fieldbase.db"))
	assert.NoError(t, err)

	// A second init keeps the existing file.
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt), []byte("backend: sqlite\nlog_level: error\n"), 0o644))
	h.ok("init")
	data, err = os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "log_level: error")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt),
		[]byte("backend: sqlite\ndata_dir: /srv/fieldbase\nlog_level: error\n"), 0o644))

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", v.GetString(cfgKeyBackend))
	assert.Equal(t, "/srv/fieldbase", v.GetString(cfgKeyDataDir))
	assert.Equal(t, "error", v.GetString(cfgKeyLogLevel))

	t.Setenv("FIELDBASE_LOG_LEVEL", "debug")
	v, err = loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", v.GetString(cfgKeyLogLevel))
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("backend: [\n"), 0o644))
	_, err := loadConfig(dir)
	assert.Error(t, err)
}

func TestDotenvSuppliesActor(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Unsetenv(envActor))
	require.NoError(t, os.WriteFile(".env", []byte(envActor+"=alice\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(envActor) })

	var tb types.Table
	out := h.ok("--json", "table", "create", "Tasks")
	require.NoError(t, json.Unmarshal([]byte(out), &tb))
	assert.Equal(t, "alice", tb.CreatedBy)
}

func TestTablesFieldsAndResponses(t *testing.T) {
	h := newHarness(t)
	tasks := h.id("table", "create", "Tasks")
	people := h.id("table", "create", "People")

	estimate := h.id("field", "add", "--table", tasks, "--label", "Estimate", "--type", "number")
	h.id("field", "add", "--table", tasks, "--label", "Owner", "--type", "relation", "--related-table", people)

	var fields []types.Field
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "field", "list", "--table", people)), &fields))
	require.Len(t, fields, 1)
	assert.Equal(t, "Owner (Reverse)", fields[0].Label)

	page := h.id("page", "create", "--table", tasks, "--title", "Write docs")
	h.ok("response", "set", page, estimate, "42")
	assert.Equal(t, "42\n", h.ok("response", "get", page, estimate))

	out := h.ok("page", "show", page)
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "Estimate")
}

func TestViewsListPagesSorted(t *testing.T) {
	h := newHarness(t)
	tasks := h.id("table", "create", "Tasks")
	estimate := h.id("field", "add", "--table", tasks, "--label", "Estimate", "--type", "number")
	for _, p := range []struct{ title, value string }{{"small", "1"}, {"large", "8"}, {"medium", "3"}} {
		id := h.id("page", "create", "--table", tasks, "--title", p.title)
		h.ok("response", "set", id, estimate, p.value)
	}

	view := h.id("view", "create", "--table", tasks, "--label", "By size", "--sort", estimate+":desc", "--default")

	var rows []fieldbase.PageRow
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "page", "list", "--view", view)), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"large", "medium", "small"}, []string{rows[0].Title, rows[1].Title, rows[2].Title})

	var views []types.View
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "view", "list", "--table", tasks)), &views))
	defaults := 0
	for _, v := range views {
		if v.IsDefault {
			defaults++
			assert.Equal(t, view, v.ViewID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestApplyAndExportSchema(t *testing.T) {
	h := newHarness(t)
	doc := `version: "1"
tables:
  - name: Tasks
    fields:
      - label: Done
        type: boolean
`
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out := h.ok("apply", path)
	assert.Contains(t, out, "tables created: 1")
	assert.Contains(t, out, "fields created: 1")

	exported := h.ok("export-schema")
	assert.Contains(t, exported, "name: Tasks")
	assert.Contains(t, exported, "label: Done")
}

func TestBackupRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.id("table", "create", "Tasks")
	dir := filepath.Join(t.TempDir(), "backup")
	h.ok("export", dir)

	_, err := os.Stat(filepath.Join(dir, "tables.jsonl"))
	require.NoError(t, err)

	other := newHarness(t)
	other.ok("import", dir)
	var tables []types.Table
	require.NoError(t, json.Unmarshal([]byte(other.ok("--json", "table", "list")), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, "Tasks", tables[0].Name)
}

func TestExitCodes(t *testing.T) {
	h := newHarness(t)
	tasks := h.id("table", "create", "Tasks")

	cases := []struct {
		name string
		args []string
		code int
	}{
		{"unknown table", []string{"table", "show", "missing"}, exitUserError},
		{"unknown field type", []string{"field", "add", "--table", tasks, "--label", "X", "--type", "bogus"}, exitUserError},
		{"empty label", []string{"field", "add", "--table", tasks, "--label", " ", "--type", "text"}, exitUserError},
		{"bad log level", []string{"--log-level", "loud", "table", "list"}, exitUserError},
		{"missing schema file", []string{"apply", filepath.Join(t.TempDir(), "none.yaml")}, exitUserError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errOut, code := h.exec(tc.args...)
			assert.Equal(t, tc.code, code)
			assert.Contains(t, errOut, "Error:")
		})
	}
}

func TestParseSort(t *testing.T) {
	specs, err := parseSort([]string{"f1", "f2:desc"})
	require.NoError(t, err)
	assert.Equal(t, []types.SortSpec{
		{FieldID: "f1", Direction: types.SortAsc},
		{FieldID: "f2", Direction: types.SortDesc},
	}, specs)

	_, err = parseSort([]string{":desc"})
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, float64(3), parseValue("3"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []any{"a", "b"}, parseValue(`["a","b"]`))
	assert.Equal(t, "hello world", parseValue("hello world"))
}

func TestTableUpdateAndListFilters(t *testing.T) {
	h := newHarness(t)
	tasks := h.id("table", "create", "Tasks", "--workspace", "ws1")
	h.id("table", "create", "People", "--workspace", "ws2")

	var tb types.Table
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "table", "update", tasks, "--name", "Todo", "--description", "open work")), &tb))
	assert.Equal(t, "Todo", tb.Name)
	assert.Equal(t, "open work", tb.Description)

	list := func(args ...string) []string {
		var tables []types.Table
		require.NoError(t, json.Unmarshal([]byte(h.ok(append([]string{"--json", "table", "list"}, args...)...)), &tables))
		names := make([]string, 0, len(tables))
		for _, tb := range tables {
			names = append(names, tb.Name)
		}
		return names
	}
	assert.Equal(t, []string{"Todo", "People"}, list())
	assert.Equal(t, []string{"People"}, list("--workspace", "ws2"))
	assert.Equal(t, []string{"Todo"}, list("--name", "tOD"))

	_, _, code := h.exec("table", "update", tasks)
	assert.Equal(t, exitUserError, code)
	_, _, code = h.exec("table", "update", tasks, "--name", " ")
	assert.Equal(t, exitUserError, code)
}

func TestAttachmentIndexResolvesExternalFiles(t *testing.T) {
	h := newHarness(t)
	h.ok("init")
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, "attachments.yaml"), []byte(`attachments:
  - id: ext-1
    name: brief.pdf
    content_type: application/pdf
    size: 2048
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt),
		[]byte("backend: sqlite\nattachment_index: attachments.yaml\n"), 0o644))

	out := h.ok("attachment", "show", "ext-1")
	assert.Contains(t, out, "brief.pdf")
	assert.Contains(t, out, "document")

	tasks := h.id("table", "create", "Tasks")
	files := h.id("field", "add", "--table", tasks, "--label", "Files", "--type", "file")
	page := h.id("page", "create", "--table", tasks, "--title", "Plan")
	h.ok("response", "set", page, files, `["ext-1"]`)
	assert.Equal(t, "[\"ext-1\"]\n", h.ok("response", "get", page, files))

	_, _, code := h.exec("response", "set", page, files, `["ext-2"]`)
	assert.Equal(t, exitUserError, code)
}

func TestAttachmentIndexErrors(t *testing.T) {
	h := newHarness(t)
	h.ok("init")
	cfg := filepath.Join(h.configDir, configFileExt)

	require.NoError(t, os.WriteFile(cfg, []byte("backend: sqlite\nattachment_index: missing.yaml\n"), 0o644))
	_, errOut, code := h.exec("table", "list")
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, errOut, "attachment index")

	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, "bad.yaml"), []byte("attachments:\n  - name: x\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte("backend: sqlite\nattachment_index: bad.yaml\n"), 0o644))
	_, _, code = h.exec("table", "list")
	assert.Equal(t, exitUserError, code)
}

func TestFolderCommands(t *testing.T) {
	h := newHarness(t)
	tasks := h.id("table", "create", "Tasks", "--workspace", "ws")
	var views []types.View
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "view", "list", "--table", tasks)), &views))
	require.Len(t, views, 2)
	a, b := views[0].ViewID, views[1].ViewID

	folder := h.id("folder", "create", "--workspace", "ws", "--label", "Planning", "--views", a+","+b)
	h.id("folder", "create", "--workspace", "ws", "--label", "Old", "--parent", folder)

	var f types.Folder
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "folder", "update", folder, "--order", b+","+a)), &f))
	assert.Equal(t, []string{b, a}, f.ViewOrder)
	assert.Equal(t, []string{a, b}, f.ViewIDs)

	_, _, code := h.exec("folder", "update", folder, "--order", b)
	assert.Equal(t, exitUserError, code)

	var folders []types.Folder
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "folder", "list", "--workspace", "ws")), &folders))
	require.Len(t, folders, 2)
	assert.Equal(t, folder, folders[1].ParentID)

	out := h.ok("folder", "show", folder)
	assert.Contains(t, out, "Planning")
	assert.Less(t, strings.Index(out, b), strings.Index(out, a))

	h.ok("folder", "delete", folder)
	folders = nil
	require.NoError(t, json.Unmarshal([]byte(h.ok("--json", "folder", "list")), &folders))
	assert.Empty(t, folders, "nested folders go with their parent")
}
