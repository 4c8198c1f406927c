package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

func testConfig(t *testing.T) types.IndexConfig {
	t.Helper()
	return types.IndexConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "icebridge-archive/test",
		},
		ArchiveDir: t.TempDir(),
	}
}

func overrideBase(t *testing.T, base *string, url string) {
	t.Helper()
	old := *base
	*base = url
	t.Cleanup(func() { *base = old })
}

func TestBuildImageIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2009_GR_NASA/10162009_raw" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<a href="2009_10_16_00002.JPG">2009_10_16_00002.JPG</a>
<a href="2009_10_16_00001.JPG">2009_10_16_00001.JPG</a>`))
	}))
	defer srv.Close()
	overrideBase(t, &rawImageBase, srv.URL)

	cfg := testConfig(t)
	b := NewBuilder(srv.Client(), cfg)
	flight := mustFlight(t, types.SiteGR, "20091016")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductImage, &buf)
	if err != nil {
		t.Fatalf("Build: %v\noutput: %s", err, buf.String())
	}

	if result.Reused {
		t.Error("fresh build should not report Reused")
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	// Entries come back sorted by frame.
	if result.Entries[0].Frame != 1 || result.Entries[1].Frame != 2 {
		t.Errorf("frames = %d, %d, want 1, 2", result.Entries[0].Frame, result.Entries[1].Frame)
	}
	wantFolder := srv.URL + "/2009_GR_NASA/10162009_raw"
	if result.Entries[0].FolderURL != wantFolder {
		t.Errorf("FolderURL = %q, want %q", result.Entries[0].FolderURL, wantFolder)
	}

	// The parsed index lands in the flight directory and round-trips.
	wantPath := filepath.Join(cfg.ArchiveDir, "GR_20091016", "image_index.csv")
	if result.Path != wantPath {
		t.Errorf("Path = %q, want %q", result.Path, wantPath)
	}
	entries, err := ReadIndex(wantPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "2009_10_16_00001.JPG" {
		t.Errorf("read back entries = %+v", entries)
	}
}

func TestBuildReusesExistingIndex(t *testing.T) {
	cfg := testConfig(t)
	flightDir := filepath.Join(cfg.ArchiveDir, "GR_20091016")
	if err := os.MkdirAll(flightDir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := []types.IndexEntry{
		{Frame: 5, Name: "2009_10_16_00005.JPG", FolderURL: "http://example.invalid/folder"},
	}
	if err := WriteIndex(filepath.Join(flightDir, "image_index.csv"), existing); err != nil {
		t.Fatal(err)
	}

	// No server: a network fetch would fail loudly.
	b := NewBuilder(&http.Client{Timeout: time.Second}, cfg)
	flight := mustFlight(t, types.SiteGR, "20091016")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductImage, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Reused {
		t.Error("expected existing index to be reused")
	}
	if len(result.Entries) != 1 || result.Entries[0].Frame != 5 {
		t.Errorf("entries = %+v", result.Entries)
	}
}

func TestBuildNextDayMerge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2010_GR_NASA/04222010_raw":
			w.Write([]byte(`<a>>2010_04_22_00001.JPG</a>
<a>>2010_04_22_00002.JPG</a>`))
		case "/2010_GR_NASA/04232010_raw":
			w.Write([]byte(`<a>>2010_04_23_00002.JPG</a>
<a>>2010_04_23_00003.JPG</a>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	overrideBase(t, &rawImageBase, srv.URL)

	cfg := testConfig(t)
	cfg.FetchNextDay = true
	b := NewBuilder(srv.Client(), cfg)
	flight := mustFlight(t, types.SiteGR, "20100422")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductImage, &buf)
	if err != nil {
		t.Fatalf("Build: %v\noutput: %s", err, buf.String())
	}

	if len(result.Entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(result.Entries), result.Entries)
	}
	// Frame 2 appears on both days; the flight's own day wins.
	if result.Entries[1].Frame != 2 || result.Entries[1].Name != "2010_04_22_00002.JPG" {
		t.Errorf("frame 2 entry = %+v, want the first day's granule", result.Entries[1])
	}
	if !strings.HasSuffix(result.Entries[2].FolderURL, "04232010_raw") {
		t.Errorf("frame 3 folder = %q, want the next day's folder", result.Entries[2].FolderURL)
	}
}

func TestBuildListingDuplicateFrameKeepsLast(t *testing.T) {
	// Reprocessed DEM tiles can be listed twice for one frame with
	// different processing timestamps; the later listing entry wins.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2011.10.18" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<a>>IODMS3_20111018_14295436_00347_DEM.tif</a>
<a>>IODMS3_20111018_14295500_00347_DEM.tif</a>`))
	}))
	defer srv.Close()
	overrideBase(t, &demBase, srv.URL)

	cfg := testConfig(t)
	b := NewBuilder(srv.Client(), cfg)
	flight := mustFlight(t, types.SiteAN, "20111018")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductDEM, &buf)
	if err != nil {
		t.Fatalf("Build: %v\noutput: %s", err, buf.String())
	}

	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(result.Entries), result.Entries)
	}
	if result.Entries[0].Name != "IODMS3_20111018_14295500_00347_DEM.tif" {
		t.Errorf("frame 347 entry = %+v, want the later listing entry", result.Entries[0])
	}
}

func TestBuildLidarProbing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atmFolder := "/ILATM1B.001/2011.10.18"
		if r.Method == http.MethodHead {
			// Existing archive folders answer HEAD with 403.
			if r.URL.Path == atmFolder {
				http.Error(w, "forbidden", http.StatusForbidden)
			} else {
				http.NotFound(w, r)
			}
			return
		}
		if r.URL.Path == atmFolder {
			w.Write([]byte(`<a>ILATM1B_20111018_145455.ATM4BT4.qi</a>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	overrideBase(t, &lvisBase, srv.URL+"/ILVIS2.001")
	overrideBase(t, &atm1Base, srv.URL+"/ILATM1B.001")
	overrideBase(t, &atm2Base, srv.URL+"/ILATM1B.002")

	cfg := testConfig(t)
	b := NewBuilder(srv.Client(), cfg)
	flight := mustFlight(t, types.SiteGR, "20111018")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductLVIS, &buf)
	if err != nil {
		t.Fatalf("Build: %v\noutput: %s", err, buf.String())
	}

	if result.Product != types.ProductATM1 {
		t.Errorf("resolved product = %q, want atm1", result.Product)
	}
	if filepath.Base(result.Path) != "lidar_index.csv" {
		t.Errorf("index file = %q, want lidar_index.csv", filepath.Base(result.Path))
	}
	if len(result.Entries) != 1 || result.Entries[0].Frame != 145455 {
		t.Errorf("entries = %+v", result.Entries)
	}
}

func TestBuildOrthoSplitsHemispheres(t *testing.T) {
	const folder = "/IODMS1B.001/2011.10.18"
	antarctic := "DMS_1000109_00347_20111018_14000000_V02.tif"
	arctic := "DMS_1381713_00347_20111018_14000001_V02.tif"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case folder:
			w.Write([]byte(">" + antarctic + "<\n>" + arctic + "<\n"))
		case folder + "/" + antarctic + ".xml":
			w.Write([]byte(`<PointLatitude>-71.25</PointLatitude>`))
		case folder + "/" + arctic + ".xml":
			w.Write([]byte(`<PointLatitude>68.93</PointLatitude>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	overrideBase(t, &orthoBase, srv.URL+"/IODMS1B.001")

	cfg := testConfig(t)
	b := NewBuilder(srv.Client(), cfg)
	flight := mustFlight(t, types.SiteAN, "20111018")

	var buf strings.Builder
	result, err := b.Build(context.Background(), flight, types.ProductOrtho, &buf)
	if err != nil {
		t.Fatalf("Build: %v\noutput: %s", err, buf.String())
	}

	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(result.Entries), result.Entries)
	}
	if result.Entries[0].Name != antarctic {
		t.Errorf("kept %q, want the southern-latitude granule %q", result.Entries[0].Name, antarctic)
	}
}

func TestReadIndexLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image_index.csv")
	if err := os.WriteFile(path, []byte("1, 2009_10_16_00001.JPG\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadIndex(path)
	if err == nil {
		t.Fatal("expected error for two-column index")
	}
	if !strings.Contains(err.Error(), "legacy index format") {
		t.Errorf("error = %q, want legacy format", err.Error())
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		product types.ProductType
		want    string
	}{
		{types.ProductImage, "image_index.csv"},
		{types.ProductOrtho, "ortho_index.csv"},
		{types.ProductDEM, "dem_index.csv"},
		{types.ProductLVIS, "lidar_index.csv"},
		{types.ProductATM1, "lidar_index.csv"},
		{types.ProductATM2, "lidar_index.csv"},
	}

	for _, tt := range tests {
		if got := FileName(tt.product); got != tt.want {
			t.Errorf("FileName(%s) = %q, want %q", tt.product, got, tt.want)
		}
	}
}
