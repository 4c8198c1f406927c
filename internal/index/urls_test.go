package index

import (
	"testing"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

func mustFlight(t *testing.T, site types.Site, date string) types.Flight {
	t.Helper()
	d, err := types.ParseFlightDate(date)
	if err != nil {
		t.Fatal(err)
	}
	return types.Flight{Site: site, Date: d}
}

func TestFolderURL(t *testing.T) {
	tests := []struct {
		name    string
		site    types.Site
		date    string
		product types.ProductType
		want    string
	}{
		{
			"raw image greenland",
			types.SiteGR, "20091016", types.ProductImage,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE_FTP/IODMS0_DMSraw_v01/2009_GR_NASA/10162009_raw",
		},
		{
			"raw image with extension",
			types.SiteAN, "20111018a", types.ProductImage,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE_FTP/IODMS0_DMSraw_v01/2011_AN_NASA/10182011a_raw",
		},
		{
			"ortho",
			types.SiteGR, "20091016", types.ProductOrtho,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/IODMS1B.001/2009.10.16",
		},
		{
			"dem",
			types.SiteGR, "20091016", types.ProductDEM,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/IODMS3.001/2009.10.16",
		},
		{
			"lvis",
			types.SiteAN, "20151005", types.ProductLVIS,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILVIS2.001/2015.10.05",
		},
		{
			"atm qi",
			types.SiteGR, "20111018", types.ProductATM1,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILATM1B.001/2011.10.18",
		},
		{
			"atm hdf5",
			types.SiteGR, "20160713", types.ProductATM2,
			"https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILATM1B.002/2016.07.13",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FolderURL(mustFlight(t, tt.site, tt.date), tt.product)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("FolderURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseListing(t *testing.T) {
	imageListing := `<html><body>
<a href="2009_10_16_00001.JPG">2009_10_16_00001.JPG</a>
<a href="2009_10_16_00002.JPG">2009_10_16_00002.JPG</a>
<a href="thumbnail.png">thumbnail.png</a>
</body></html>`

	orthoListing := `<a href="x">DMS_1000109_03939_20091016_23310503_V02.tif</a>
<a href="y">DMS_1000109_03940_20091016_23310553_V02.tif</a>
<a href="y">DMS_1000109_03940_20091016_23310553_V02.tif.xml</a>`

	demListing := `<td><a>IODMS3_20111018_14295436_00347_DEM.tif</a></td>
<td><a>IODMS3_20111018_14295436_00347_DEM.tfw</a></td>`

	lvisListing := `<a>ILVIS2_AQ2015_0929_R1605_060226.TXT</a>`

	atm1Listing := `<a>ILATM1B_20091016_193033.atm4cT3.qi</a>
<a>ILATM1B_20091016_194518.atm4cT3.qi</a>`

	atm2Listing := `<a>ILATM1B_20160713_195419.ATM5BT5.h5</a>`

	tests := []struct {
		name    string
		listing string
		product types.ProductType
		want    []string
	}{
		{
			"image", imageListing, types.ProductImage,
			[]string{"2009_10_16_00001.JPG", "2009_10_16_00002.JPG"},
		},
		{
			"ortho skips sidecars", orthoListing, types.ProductOrtho,
			[]string{
				"DMS_1000109_03939_20091016_23310503_V02.tif",
				"DMS_1000109_03940_20091016_23310553_V02.tif",
			},
		},
		{
			"dem skips world files", demListing, types.ProductDEM,
			[]string{"IODMS3_20111018_14295436_00347_DEM.tif"},
		},
		{
			"lvis", lvisListing, types.ProductLVIS,
			[]string{"ILVIS2_AQ2015_0929_R1605_060226.TXT"},
		},
		{
			"atm qi", atm1Listing, types.ProductATM1,
			[]string{
				"ILATM1B_20091016_193033.atm4cT3.qi",
				"ILATM1B_20091016_194518.atm4cT3.qi",
			},
		},
		{
			"atm hdf5", atm2Listing, types.ProductATM2,
			[]string{"ILATM1B_20160713_195419.ATM5BT5.h5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListing(tt.listing, tt.product)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d names %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("name[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		filename string
		want     int
		wantErr  bool
	}{
		{"2009_10_16_00001.JPG", 1, false},
		{"2011_10_18_20362.JPG", 20362, false},
		{"DMS_1000109_03939_20091016_23310503_V02.tif", 3939, false},
		{"IODMS3_20111018_14295436_00347_DEM.tif", 347, false},
		{"ILVIS2_AQ2015_0929_R1605_060226.TXT", 60226, false},
		{"ILATM1B_20091016_193033.atm4cT3.qi", 193033, false},
		{"ILATM1B_20160713_195419.ATM5BT5.h5", 195419, false},
		{"README.txt", 0, true},
		{"thumbnail.png", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := FrameNumber(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FrameNumber(%q) = %d, want error", tt.filename, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("FrameNumber(%q) = %d, want %d", tt.filename, got, tt.want)
			}
		})
	}
}
