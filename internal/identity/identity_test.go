package identity

import "testing"

func TestFromPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		want   ID
		wantOK bool
	}{
		{
			name:   "raw video file",
			path:   "/data/video/L21_V001.mp4",
			want:   "L21_V001",
			wantOK: true,
		},
		{
			name:   "map csv",
			path:   "/data/map-keyframes/L05_V012.csv",
			want:   "L05_V012",
			wantOK: true,
		},
		{
			name:   "prefixed keyframe name",
			path:   "/data/keyframes/L21_V001_001.jpg",
			want:   "L21_V001",
			wantOK: true,
		},
		{
			name:   "numeric name inside per-video directory",
			path:   "/data/keyframes/L21_V001/007.jpg",
			want:   "L21_V001",
			wantOK: true,
		},
		{
			name:   "numeric detection file inside per-video directory",
			path:   "/data/objects/L03_V099/012.json",
			want:   "L03_V099",
			wantOK: true,
		},
		{
			name:   "underscore name takes precedence over parent",
			path:   "/data/keyframes/L21_V001/extra_frame.jpg",
			want:   "extra_frame",
			wantOK: true,
		},
		{
			name:   "unresolvable name",
			path:   "/data/video/readme.txt",
			wantOK: false,
		},
		{
			name:   "numeric name without video parent",
			path:   "/data/video/001.mp4",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromPath(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("FromPath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFromPathDeterministic(t *testing.T) {
	paths := []string{
		"/data/video/L21_V001.mp4",
		"/data/keyframes/L21_V001/007.jpg",
		"/data/objects/L03_V099/012.json",
	}
	for _, p := range paths {
		first, firstOK := FromPath(p)
		for i := 0; i < 10; i++ {
			got, ok := FromPath(p)
			if got != first || ok != firstOK {
				t.Fatalf("FromPath(%q) unstable: %q/%v then %q/%v", p, first, firstOK, got, ok)
			}
		}
	}
}

func TestComponents(t *testing.T) {
	tests := []struct {
		id         ID
		level, num int
		ok         bool
	}{
		{"L21_V001", 21, 1, true},
		{"L1_V100", 1, 100, true},
		{"extra_frame", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		level, num, ok := tt.id.Components()
		if level != tt.level || num != tt.num || ok != tt.ok {
			t.Errorf("Components(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.id, level, num, ok, tt.level, tt.num, tt.ok)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := ID("L21_V001").Display(); got != "L21 V001" {
		t.Errorf("Display() = %q, want %q", got, "L21 V001")
	}
}
