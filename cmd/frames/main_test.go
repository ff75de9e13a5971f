package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// setupCLI points config and database at a temp dir
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("FRAMES_DATABASE", filepath.Join(dir, "data", "frames.db"))
	t.Cleanup(viper.Reset)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	root := newRootCmd()
	initConfig()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("frames %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestStartStopReport(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "start", "blog", "--at", "2019-05-04 12:00", "--tag", "writing")
	if !strings.HasPrefix(out, "Started blog [writing] at 12:00 pm") {
		t.Errorf("start output = %q", out)
	}

	if _, err := runCLI(t, "start", "blog"); err == nil {
		t.Error("second start of the same project succeeded")
	}
	if _, err := runCLI(t, "start", "site", "--estimate", "soon"); err == nil {
		t.Error("start with a bad estimate succeeded")
	}
	if out := mustRun(t, "status"); strings.Contains(out, "site") {
		t.Errorf("failed start left a frame behind: %q", out)
	}

	out = mustRun(t, "stop", "--at", "2019-05-04 13:00")
	if !strings.Contains(out, "(1:00 elapsed)") {
		t.Errorf("stop output = %q", out)
	}

	if _, err := runCLI(t, "stop"); err == nil {
		t.Error("stop with nothing running succeeded")
	}

	out = mustRun(t, "report", "--from", "2019-05-04", "--to", "2019-05-04", "--format", "csv")
	want := "Project,Tags,Date,Start,End,Elapsed\n" +
		"blog,writing,\"May 4, 2019\",\"12:00 pm\",\"1:00 pm\",1:00\n"
	if out != want {
		t.Errorf("report output\n got: %q\nwant: %q", out, want)
	}
}

func TestAddWithInterval(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "add", "blog", "--from", "2019-05-04 09:00", "--interval", "1h 30m")
	if !strings.Contains(out, "to May 4, 2019 10:30 am") {
		t.Errorf("add output = %q", out)
	}

	if _, err := runCLI(t, "add", "blog", "--from", "2019-05-04 09:00", "--to", "2019-05-04 08:00"); err == nil {
		t.Error("add with end before start succeeded")
	}
	out = mustRun(t, "add", "site", "--from", "2019-05-04 11:00", "--to", "2019-05-04 15:00", "--interval", "1h")
	if !strings.Contains(out, "to May 4, 2019 12:00 pm") {
		t.Errorf("--interval should override --to: %q", out)
	}

	out = mustRun(t, "log")
	if !strings.Contains(out, "11:00 am - 12:00 pm  1:00  site") {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, "9:00 am - 10:30 am  1:30  blog") {
		t.Errorf("log output = %q", out)
	}
}

func TestRestartAndEdit(t *testing.T) {
	setupCLI(t)

	mustRun(t, "add", "blog", "--from", "2019-05-04 09:00", "--to", "2019-05-04 10:00", "--tag", "writing")
	out := mustRun(t, "restart", "--at", "2019-05-04 11:00")
	if !strings.HasPrefix(out, "Restarted blog [writing] at 11:00 am") {
		t.Fatalf("restart output = %q", out)
	}
	id := strings.TrimSuffix(out[strings.Index(out, "(id ")+4:], ")\n")

	mustRun(t, "tag", id, "theme")
	mustRun(t, "note", id, "new", "theme")
	mustRun(t, "estimate", id, "2h")

	out = mustRun(t, "status")
	if !strings.Contains(out, "blog [theme, writing]") {
		t.Errorf("status output = %q", out)
	}

	out = mustRun(t, "delete", id)
	if !strings.HasPrefix(out, "Deleted frame "+id) {
		t.Errorf("delete output = %q", out)
	}
	out = mustRun(t, "status")
	if out != "No project started.\n" {
		t.Errorf("status after delete = %q", out)
	}
}

func TestProjectsAndTags(t *testing.T) {
	setupCLI(t)

	if out := mustRun(t, "projects"); !strings.HasPrefix(out, "No projects yet") {
		t.Errorf("projects output = %q", out)
	}

	mustRun(t, "add", "blog", "--from", "2019-05-04 09:00", "--interval", "1h", "-t", "writing")
	mustRun(t, "add", "api", "--from", "2019-05-04 11:00", "--interval", "1h")

	if out := mustRun(t, "projects"); out != "api\nblog\n" {
		t.Errorf("projects output = %q", out)
	}
	if out := mustRun(t, "tags"); out != "writing\n" {
		t.Errorf("tags output = %q", out)
	}
}

func TestSettingsEdit(t *testing.T) {
	dir := setupCLI(t)

	out := mustRun(t, "settings", "edit", "timezone", "America/New_York")
	if out != "Updated timezone to America/New_York\n" {
		t.Errorf("edit output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "config", "frames", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out = mustRun(t, "settings", "show")
	if !strings.Contains(out, `timezone: "America/New_York"`) {
		t.Errorf("show output = %q", out)
	}

	if _, err := runCLI(t, "settings", "edit", "timezone", "Mars/Base"); err == nil {
		t.Error("invalid timezone accepted")
	}
	if _, err := runCLI(t, "settings", "edit", "colour", "blue"); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestReportRangeDefaults(t *testing.T) {
	today := time.Date(2019, 5, 10, 22, 0, 0, 0, time.UTC)

	from, to, err := reportRange("", "", today)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2019, 5, 4, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2019, 5, 10, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}

	if _, _, err := reportRange("yesterday", "", today); err == nil {
		t.Error("reportRange() accepted a bad date")
	}
}
