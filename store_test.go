package plotrc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/plotrc/layer"
	"github.com/dshills/plotrc/notify"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustGet(t *testing.T, s *Store, key string) any {
	t.Helper()
	v, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return v
}

func TestStore_SetGet(t *testing.T) {
	s := newTestStore(t)

	if got := mustGet(t, s, "tick.len"); got != 4.0 {
		t.Errorf("default tick.len = %v, want 4.0", got)
	}

	if err := s.Set("tick.len", 6.0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("tick.len = %v, want 6.0", got)
	}

	src, err := s.Source("tick.len")
	if err != nil {
		t.Fatal(err)
	}
	if src != layer.SourceUser {
		t.Errorf("Source = %v, want SourceUser", src)
	}
}

func TestStore_Set_CoercesInt(t *testing.T) {
	s := newTestStore(t)

	// Float settings accept integer input in canonical form.
	if err := s.Set("tick.len", 6); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("tick.len = %v (%T), want 6.0", got, got)
	}
}

func TestStore_Get_UnknownKey(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("no.such")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get unknown = %v, want ErrUnknownKey", err)
	}
	if err := s.Set("no.such", 1); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set unknown = %v, want ErrUnknownKey", err)
	}
}

func TestStore_Set_InvalidLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)

	err := s.Set("grid.alpha", 2.0) // above maximum
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Set = %v, want ErrInvalidValue", err)
	}
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("Set error type = %T, want *InvalidValueError", err)
	}
	if ive.Key != "grid.alpha" || ive.Accepts == "" {
		t.Errorf("error detail = %+v", ive)
	}

	if got := mustGet(t, s, "grid.alpha"); got != 0.11 {
		t.Errorf("grid.alpha after failed Set = %v, want default 0.11", got)
	}
	if changed := s.Changed(); len(changed) != 0 {
		t.Errorf("changed-set after failed Set = %v, want empty", changed)
	}
}

func TestStore_Set_DerivesChildren(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("meta.color", "red"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	for _, key := range []string{"axes.edgecolor", "tick.color", "grid.color", "label.color"} {
		if got := mustGet(t, s, key); got != "red" {
			t.Errorf("%s = %v, want red", key, got)
		}
	}

	// Transitive chain: meta.linewidth -> tick.width -> tick.widthminor.
	if err := s.Set("meta.linewidth", 1.0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := mustGet(t, s, "tick.width"); got != 1.0 {
		t.Errorf("tick.width = %v, want 1.0", got)
	}
	if got := mustGet(t, s, "tick.widthminor"); got != 0.8 {
		t.Errorf("tick.widthminor = %v, want 0.8", got)
	}
	if got := mustGet(t, s, "grid.linewidth"); got != 0.9 {
		t.Errorf("grid.linewidth = %v, want 0.9", got)
	}
}

func TestStore_Override_ExplicitChildWins(t *testing.T) {
	s := newTestStore(t)

	restore, err := s.Override(map[string]any{
		"meta.linewidth": 1.0,
		"tick.width":     2.0,
	})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	defer restore()

	// The explicit child keeps its value and reroots its own subtree.
	if got := mustGet(t, s, "tick.width"); got != 2.0 {
		t.Errorf("tick.width = %v, want explicit 2.0", got)
	}
	if got := mustGet(t, s, "tick.widthminor"); got != 1.6 {
		t.Errorf("tick.widthminor = %v, want 1.6", got)
	}
	if got := mustGet(t, s, "axes.linewidth"); got != 1.0 {
		t.Errorf("axes.linewidth = %v, want 1.0", got)
	}
}

func TestStore_Override_RestoresOnExit(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("font.size", 11.0); err != nil {
		t.Fatal(err)
	}

	restore, err := s.Override(map[string]any{"font.size": 14.0})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}

	if got := mustGet(t, s, "font.size"); got != 14.0 {
		t.Errorf("overridden font.size = %v, want 14.0", got)
	}
	if got := mustGet(t, s, "font.smallsize"); got != 13.0 {
		t.Errorf("overridden font.smallsize = %v, want 13.0", got)
	}
	if src, _ := s.Source("font.size"); src != layer.SourceOverride {
		t.Errorf("Source = %v, want SourceOverride", src)
	}

	restore()
	restore() // idempotent

	if got := mustGet(t, s, "font.size"); got != 11.0 {
		t.Errorf("restored font.size = %v, want 11.0", got)
	}
	if got := mustGet(t, s, "font.smallsize"); got != 10.0 {
		t.Errorf("restored font.smallsize = %v, want 10.0", got)
	}
}

func TestStore_Override_Nested(t *testing.T) {
	s := newTestStore(t)

	outer, err := s.Override(map[string]any{"tick.len": 6.0})
	if err != nil {
		t.Fatal(err)
	}
	inner, err := s.Override(map[string]any{"tick.len": 8.0})
	if err != nil {
		t.Fatal(err)
	}

	if got := mustGet(t, s, "tick.len"); got != 8.0 {
		t.Errorf("inner tick.len = %v, want 8.0", got)
	}

	inner()
	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("after inner restore tick.len = %v, want 6.0", got)
	}

	outer()
	if got := mustGet(t, s, "tick.len"); got != 4.0 {
		t.Errorf("after outer restore tick.len = %v, want 4.0", got)
	}
}

func TestStore_Override_OuterRestoreClearsInner(t *testing.T) {
	s := newTestStore(t)

	outer, err := s.Override(map[string]any{"tick.len": 6.0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Override(map[string]any{"font.size": 14.0}); err != nil {
		t.Fatal(err)
	}

	// Restoring the outer scope clears everything pushed inside it.
	outer()

	if got := mustGet(t, s, "tick.len"); got != 4.0 {
		t.Errorf("tick.len = %v, want default 4.0", got)
	}
	if got := mustGet(t, s, "font.size"); got != 9.0 {
		t.Errorf("font.size = %v, want default 9.0", got)
	}
}

func TestStore_With(t *testing.T) {
	s := newTestStore(t)

	wantErr := errors.New("render failed")
	err := s.With(map[string]any{"grid.alpha": 0.5}, func() error {
		if got := mustGet(t, s, "grid.alpha"); got != 0.5 {
			t.Errorf("inside With grid.alpha = %v, want 0.5", got)
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("With = %v, want the callback error", err)
	}

	// Restored even though the callback failed.
	if got := mustGet(t, s, "grid.alpha"); got != 0.11 {
		t.Errorf("after With grid.alpha = %v, want 0.11", got)
	}
}

func TestStore_With_InvalidValue(t *testing.T) {
	s := newTestStore(t)

	called := false
	err := s.With(map[string]any{"tick.len": -1.0}, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("With = %v, want ErrInvalidValue", err)
	}
	if called {
		t.Error("callback ran despite invalid override")
	}
}

func TestStore_Load(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.rc", `
# plotting tweaks
tick.len = 6.0
meta.color = gray
cmap.levels = 21
style.cycle = "#0072b2", "#e69f00"
axes.inbounds = false
`)

	if err := s.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("tick.len = %v, want 6.0", got)
	}
	if got := mustGet(t, s, "tick.lenminor"); got != 3.0 {
		t.Errorf("derived tick.lenminor = %v, want 3.0", got)
	}
	if got := mustGet(t, s, "grid.color"); got != "gray" {
		t.Errorf("derived grid.color = %v, want gray", got)
	}
	if got := mustGet(t, s, "cmap.levels"); got != 21 {
		t.Errorf("cmap.levels = %v, want 21", got)
	}
	if diff := cmp.Diff([]string{"#0072b2", "#e69f00"}, mustGet(t, s, "style.cycle")); diff != "" {
		t.Errorf("style.cycle mismatch (-want +got):\n%s", diff)
	}
	if got := mustGet(t, s, "axes.inbounds"); got != false {
		t.Errorf("axes.inbounds = %v, want false", got)
	}
}

func TestStore_Load_RejectsWholeFile(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.rc", `tick.len = 6.0
grid.alpha = 5.0
`)

	err := s.Load(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Load = %v, want *FormatError", err)
	}
	if fe.Line != 2 {
		t.Errorf("error line = %d, want 2", fe.Line)
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Load = %v, want wrapped ErrInvalidValue", err)
	}

	// The valid first line must not have been applied.
	if got := mustGet(t, s, "tick.len"); got != 4.0 {
		t.Errorf("tick.len after rejected load = %v, want 4.0", got)
	}
	if changed := s.Changed(); len(changed) != 0 {
		t.Errorf("changed-set after rejected load = %v, want empty", changed)
	}
}

func TestStore_Load_UnknownKey(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.rc", "ticks.len = 6.0\n")

	err := s.Load(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Load = %v, want *FormatError", err)
	}
	if fe.Line != 1 || !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error = %v (line %d), want ErrUnknownKey at line 1", err, fe.Line)
	}
}

func TestStore_Load_MissingFile(t *testing.T) {
	s := newTestStore(t)
	err := s.Load(filepath.Join(t.TempDir(), "absent.rc"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load = %v, want wrapped fs not-exist error", err)
	}
}

func TestStore_LoadTOML(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.toml", `
[tick]
len = 6.0

[cmap]
sequential = "magma"
levels = 21
`)

	if err := s.LoadTOML(path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("tick.len = %v, want 6.0", got)
	}
	if got := mustGet(t, s, "cmap.sequential"); got != "magma" {
		t.Errorf("cmap.sequential = %v, want magma", got)
	}
	if got := mustGet(t, s, "cmap.levels"); got != 21 {
		t.Errorf("cmap.levels = %v, want 21", got)
	}
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	for key, value := range map[string]any{
		"tick.len":               6.0,
		"cmap.levels":            21,
		"cmap.sequential":        "magma",
		"axes.inbounds":          false,
		"meta.color":             "#404040",
		"style.cycle":            []string{"red, sort of", "#e69f00", "42"},
		"formatter.timerotation": -45.0,
	} {
		if err := s.Set(key, value); err != nil {
			t.Fatalf("Set(%s) failed: %v", key, err)
		}
	}

	path := filepath.Join(t.TempDir(), "saved.rc")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fresh := newTestStore(t)
	if err := fresh.Load(path); err != nil {
		t.Fatalf("Load of saved file failed: %v", err)
	}

	if diff := cmp.Diff(s.Changed(), fresh.Changed()); diff != "" {
		t.Errorf("changed-set not reproduced (-saved +loaded):\n%s", diff)
	}
}

func TestStore_Changed(t *testing.T) {
	s := newTestStore(t)

	if changed := s.Changed(); len(changed) != 0 {
		t.Fatalf("fresh changed-set = %v, want empty", changed)
	}

	if err := s.Set("tick.len", 6.0); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"tick.len": 6.0, "tick.lenminor": 3.0}
	if diff := cmp.Diff(want, s.Changed()); diff != "" {
		t.Errorf("changed-set mismatch (-want +got):\n%s", diff)
	}

	// Setting a key back to its default removes it from the set.
	if err := s.Set("tick.len", 4.0); err != nil {
		t.Fatal(err)
	}
	if changed := s.Changed(); len(changed) != 0 {
		t.Errorf("changed-set after reset = %v, want empty", changed)
	}
}

func TestStore_Changed_ExcludesOverrides(t *testing.T) {
	s := newTestStore(t)

	restore, err := s.Override(map[string]any{"tick.len": 6.0})
	if err != nil {
		t.Fatal(err)
	}
	defer restore()

	if changed := s.Changed(); len(changed) != 0 {
		t.Errorf("changed-set with active override = %v, want empty", changed)
	}
}

func TestStore_Category(t *testing.T) {
	s := newTestStore(t)

	values, err := s.Category("font")
	if err != nil {
		t.Fatalf("Category failed: %v", err)
	}
	want := map[string]any{
		"font.size":      9.0,
		"font.smallsize": 8.0,
		"font.largesize": 10.4,
		"font.family":    "sans-serif",
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("font category mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Category("nope"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Category(nope) = %v, want ErrUnknownCategory", err)
	}
}

func TestStore_SetCategory(t *testing.T) {
	s := newTestStore(t)

	err := s.SetCategory("grid", map[string]any{
		"labelpad": 6.0,
		"alpha":    0.5,
	})
	if err != nil {
		t.Fatalf("SetCategory failed: %v", err)
	}
	if got := mustGet(t, s, "grid.labelpad"); got != 6.0 {
		t.Errorf("grid.labelpad = %v, want 6.0", got)
	}
	if got := mustGet(t, s, "grid.alpha"); got != 0.5 {
		t.Errorf("grid.alpha = %v, want 0.5", got)
	}
}

func TestStore_SetCategory_AllOrNothing(t *testing.T) {
	s := newTestStore(t)

	err := s.SetCategory("grid", map[string]any{
		"labelpad": 6.0,
		"alpha":    5.0, // invalid
	})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("SetCategory = %v, want ErrInvalidValue", err)
	}
	if got := mustGet(t, s, "grid.labelpad"); got != 4.0 {
		t.Errorf("grid.labelpad after failed batch = %v, want 4.0", got)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := newTestStore(t)

	var changes []notify.Change
	sub := s.Subscribe(func(c notify.Change) { changes = append(changes, c) })
	defer sub.Unsubscribe()

	if err := s.Set("cmap.levels", 21); err != nil {
		t.Fatal(err)
	}

	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	c := changes[0]
	if c.Key != "cmap.levels" || c.Old != 11 || c.New != 21 || c.Type != notify.ChangeSet {
		t.Errorf("change = %+v", c)
	}

	// Re-setting the same value must not notify.
	changes = nil
	if err := s.Set("cmap.levels", 21); err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("got %d changes for no-op set, want 0", len(changes))
	}
}

func TestStore_SubscribeKey_CategoryPrefix(t *testing.T) {
	s := newTestStore(t)

	var keys []string
	sub := s.SubscribeKey("tick", func(c notify.Change) { keys = append(keys, c.Key) })
	defer sub.Unsubscribe()

	if err := s.Set("tick.len", 6.0); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("grid.alpha", 0.5); err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"tick.len": true, "tick.lenminor": true}
	if len(keys) != 2 || !want[keys[0]] || !want[keys[1]] {
		t.Errorf("observed keys = %v, want tick.len and tick.lenminor", keys)
	}
}

func TestStore_Environ(t *testing.T) {
	t.Setenv("PLOTRC_TICK_LEN", "6.5")
	t.Setenv("PLOTRC_FONT_FAMILY", "monospace")
	t.Setenv("PLOTRC_GRID_ALPHA", "5.0")  // invalid, skipped
	t.Setenv("PLOTRC_NO_SUCH_KEY", "yes") // unknown, skipped

	s := newTestStore(t, WithEnviron("PLOTRC"))

	if got := mustGet(t, s, "tick.len"); got != 6.5 {
		t.Errorf("tick.len = %v, want 6.5", got)
	}
	if got := mustGet(t, s, "font.family"); got != "monospace" {
		t.Errorf("font.family = %v, want monospace", got)
	}
	if got := mustGet(t, s, "grid.alpha"); got != 0.11 {
		t.Errorf("grid.alpha = %v, want default after invalid env value", got)
	}

	if src, _ := s.Source("tick.len"); src != layer.SourceEnv {
		t.Errorf("Source = %v, want SourceEnv", src)
	}

	// Environment wins over values written by Set.
	if err := s.Set("tick.len", 9.0); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, s, "tick.len"); got != 6.5 {
		t.Errorf("tick.len with env layer = %v, want 6.5", got)
	}
}

func TestStore_Watch_Reload(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.rc", "tick.len = 6.0\n")
	if err := s.Load(path); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan struct{}, 10)
	sub := s.Subscribe(func(c notify.Change) {
		if c.Type == notify.ChangeReload {
			reloads <- struct{}{}
		}
	})
	defer sub.Unsubscribe()

	if err := s.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("tick.len = 8.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reloads:
			if got := mustGet(t, s, "tick.len"); got == 8.0 {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload, tick.len = %v", mustGet(t, s, "tick.len"))
		}
	}
}

func TestStore_Watch_BadReloadKeepsState(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "settings.rc", "tick.len = 6.0\n")
	if err := s.Load(path); err != nil {
		t.Fatal(err)
	}
	if err := s.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("tick.len = -1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The rejected reload must leave the loaded value in place.
	time.Sleep(500 * time.Millisecond)
	if got := mustGet(t, s, "tick.len"); got != 6.0 {
		t.Errorf("tick.len after bad reload = %v, want 6.0", got)
	}
}

func TestStore_TypedAccessors(t *testing.T) {
	s := newTestStore(t)

	if v, err := s.GetFloat("tick.len"); err != nil || v != 4.0 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := s.GetFloat("cmap.levels"); err != nil || v != 11.0 {
		t.Errorf("GetFloat on int setting = %v, %v", v, err)
	}
	if v, err := s.GetInt("cmap.levels"); err != nil || v != 11 {
		t.Errorf("GetInt = %v, %v", v, err)
	}
	if v, err := s.GetBool("cmap.discrete"); err != nil || v != true {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := s.GetString("cmap.sequential"); err != nil || v != "viridis" {
		t.Errorf("GetString = %v, %v", v, err)
	}
	if v, err := s.GetStrings("style.cycle"); err != nil || len(v) != 6 {
		t.Errorf("GetStrings = %v, %v", v, err)
	}

	var te *TypeError
	if _, err := s.GetInt("tick.len"); !errors.As(err, &te) {
		t.Errorf("GetInt on float = %v, want *TypeError", err)
	} else if te.Expected != "int" || te.Actual != "float64" {
		t.Errorf("type error detail = %+v", te)
	}

	hex, ok, err := s.GetColorHex("style.negcolor")
	if err != nil || !ok || hex != "#0000ff" {
		t.Errorf("GetColorHex = %q, %v, %v", hex, ok, err)
	}
}

// writeFile writes content to a fresh temp file and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
