package usecase

import (
	"errors"
	"testing"
)

func TestNormalizeSaveName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "flat", input: "MySave", want: "MySave"},
		{name: "mode and save", input: "Survival/MySave", want: "Survival/MySave"},
		{name: "backslashes", input: `Survival\MySave`, want: "Survival/MySave"},
		{name: "outer slashes and space", input: " /Survival/MySave/ ", want: "Survival/MySave"},
		{name: "dated save name", input: "Sandbox/05-01-2024_10-00-00", want: "Sandbox/05-01-2024_10-00-00"},
		{name: "undo inside path is fine", input: "Survival_undo/MySave", want: "Survival_undo/MySave"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "dot dot", input: "../MySave", wantErr: true},
		{name: "nested dot dot", input: "Survival/../../etc", wantErr: true},
		{name: "double slash", input: "Survival//MySave", wantErr: true},
		{name: "hidden", input: "Survival/.locks", wantErr: true},
		{name: "reserved chars", input: "Survival/My:Save", wantErr: true},
		{name: "undo suffix", input: "Survival/MySave_undo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSaveName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUsage) {
					t.Fatalf("expected usage error, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateEntryName(t *testing.T) {
	for _, name := range []string{"", " ", ".", "..", "a/b.tar.gz", `a\b.tar.gz`} {
		if _, err := validateEntryName(name, "backup"); !errors.Is(err, ErrUsage) {
			t.Fatalf("expected usage error for %q, got %v", name, err)
		}
	}
	got, err := validateEntryName(" 2024-05-01_10-00-00.tar.gz ", "backup")
	if err != nil || got != "2024-05-01_10-00-00.tar.gz" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestSaveLayoutPaths(t *testing.T) {
	fs := newTestFileSystem()
	cfg := &Config{SaveRoot: "/games/Saves", BackupRoot: "/backups"}

	if got := saveDirPath(fs, cfg, "Survival/Alpha"); got != "/games/Saves/Survival/Alpha" {
		t.Fatalf("save dir: %s", got)
	}
	if got := saveBackupDir(fs, cfg, "Survival/Alpha"); got != "/backups/Survival/Alpha" {
		t.Fatalf("backup dir: %s", got)
	}
	if got := undoSnapshotDir(fs, cfg, "Survival/Alpha"); got != "/backups/Survival/Alpha_undo" {
		t.Fatalf("undo dir: %s", got)
	}
	if got := AutoBackupStatusPath(fs, cfg); got != "/backups/.savevault/autobackup.json" {
		t.Fatalf("status path: %s", got)
	}
	if got := ConfigPathIn(fs, "/home/u/.config"); got != "/home/u/.config/savevault/config.toml" {
		t.Fatalf("config path: %s", got)
	}
}

func TestExpandHomeDir(t *testing.T) {
	home := "/home/player"
	tests := []struct {
		input string
		want  string
	}{
		{input: "~", want: home},
		{input: "~/Zomboid/Saves", want: "/home/player/Zomboid/Saves"},
		{input: "$HOME/Backups", want: "/home/player/Backups"},
		{input: "${HOME}/Backups", want: "/home/player/Backups"},
		{input: `~\Zomboid`, want: `/home/player\Zomboid`},
		{input: "/abs/path", want: "/abs/path"},
		{input: "~other/path", want: "~other/path"},
		{input: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := ExpandHomeDirPublic(tt.input, home); got != tt.want {
			t.Fatalf("expand %q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestContractHomeDir(t *testing.T) {
	home := "/home/player"
	if got := contractHomeDir("/home/player", home, '/'); got != "~" {
		t.Fatalf("got %q", got)
	}
	if got := contractHomeDir("/home/player/ZomboidBackups", home, '/'); got != "~/ZomboidBackups" {
		t.Fatalf("got %q", got)
	}
	if got := contractHomeDir("/home/playerx/data", home, '/'); got != "/home/playerx/data" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	fs := newTestFileSystem()
	if got := normalizePath(fs, "~/logs/", "/home/player"); got != "/home/player/logs" {
		t.Fatalf("got %q", got)
	}
	if got := normalizePath(fs, ".", "/home/player"); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := normalizePath(fs, "/", "/home/player"); got != "/" {
		t.Fatalf("got %q", got)
	}
}
