package types

import (
	"strings"
	"testing"
)

func TestParseFlightDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FlightDate
		wantErr bool
	}{
		{"plain date", "20091016", FlightDate{Year: 2009, Month: 10, Day: 16}, false},
		{"with extension", "20111018a", FlightDate{Year: 2011, Month: 10, Day: 18, Ext: "a"}, false},
		{"too short", "2009101", FlightDate{}, true},
		{"too long", "20091016ab", FlightDate{}, true},
		{"bad month", "20091316", FlightDate{}, true},
		{"bad day", "20091000", FlightDate{}, true},
		{"not digits", "2009x016", FlightDate{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlightDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFlightDate(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlightDate(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFlightDate(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlightDateString(t *testing.T) {
	tests := []struct {
		date FlightDate
		want string
	}{
		{FlightDate{Year: 2009, Month: 10, Day: 16}, "20091016"},
		{FlightDate{Year: 2011, Month: 10, Day: 18, Ext: "a"}, "20111018a"},
		{FlightDate{Year: 2010, Month: 4, Day: 5}, "20100405"},
	}

	for _, tt := range tests {
		if got := tt.date.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFlightDateAddDays(t *testing.T) {
	tests := []struct {
		name string
		date FlightDate
		n    int
		want string
	}{
		{"next day", FlightDate{Year: 2009, Month: 10, Day: 16}, 1, "20091017"},
		{"month rollover", FlightDate{Year: 2009, Month: 10, Day: 31}, 1, "20091101"},
		{"year rollover", FlightDate{Year: 2009, Month: 12, Day: 31}, 1, "20100101"},
		{"extension dropped", FlightDate{Year: 2011, Month: 10, Day: 18, Ext: "a"}, 1, "20111019"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.AddDays(tt.n).String(); got != tt.want {
				t.Errorf("AddDays(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestSiteLatitude(t *testing.T) {
	tests := []struct {
		site Site
		lat  float64
		want bool
	}{
		{SiteGR, 68.5, true},
		{SiteGR, -71.2, false},
		{SiteAN, -71.2, true},
		{SiteAN, 68.5, false},
		{SiteGR, 0, false},
		{SiteAN, 0, false},
	}

	for _, tt := range tests {
		if got := tt.site.HasGoodLatitude(tt.lat); got != tt.want {
			t.Errorf("%s.HasGoodLatitude(%v) = %v, want %v", tt.site, tt.lat, got, tt.want)
		}
	}
}

func TestSiteOther(t *testing.T) {
	if SiteAN.Other() != SiteGR {
		t.Error("AN.Other() should be GR")
	}
	if SiteGR.Other() != SiteAN {
		t.Error("GR.Other() should be AN")
	}
}

func TestFlightID(t *testing.T) {
	f := Flight{Site: SiteGR, Date: FlightDate{Year: 2009, Month: 10, Day: 16}}
	if got := f.ID(); got != "GR_20091016" {
		t.Errorf("ID() = %q, want GR_20091016", got)
	}
	if got := f.Other().ID(); got != "AN_20091016" {
		t.Errorf("Other().ID() = %q, want AN_20091016", got)
	}
}

func TestParseProductType(t *testing.T) {
	tests := []struct {
		input   string
		want    ProductType
		wantErr bool
	}{
		{"image", ProductImage, false},
		{"ortho", ProductOrtho, false},
		{"dem", ProductDEM, false},
		{"lvis", ProductLVIS, false},
		{"atm1", ProductATM1, false},
		{"atm2", ProductATM2, false},
		{"lidar", ProductLVIS, false},
		{"DEM", ProductDEM, false},
		{" ortho ", ProductOrtho, false},
		{"radar", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProductType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseProductType(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProductType(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseProductType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProductSidecars(t *testing.T) {
	tests := []struct {
		product ProductType
		xml     bool
		tfw     bool
	}{
		{ProductImage, false, false},
		{ProductOrtho, true, false},
		{ProductDEM, true, true},
		{ProductLVIS, true, false},
		{ProductATM1, true, false},
		{ProductATM2, true, false},
	}

	for _, tt := range tests {
		if got := tt.product.HasXMLSidecar(); got != tt.xml {
			t.Errorf("%s.HasXMLSidecar() = %v, want %v", tt.product, got, tt.xml)
		}
		if got := tt.product.HasTFWSidecar(); got != tt.tfw {
			t.Errorf("%s.HasTFWSidecar() = %v, want %v", tt.product, got, tt.tfw)
		}
	}
}

func TestSpecialCaseValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    SpecialCase
		wantErr string
	}{
		{
			"fetch next day",
			SpecialCase{Site: SiteGR, Date: "20100422", Action: ActionFetchNextDay},
			"",
		},
		{
			"split hemisphere",
			SpecialCase{Site: SiteAN, Date: "20111018", Action: ActionSplitHemisphere},
			"",
		},
		{
			"concat dirs",
			SpecialCase{Site: SiteGR, Date: "20120423", Action: ActionConcatDirs, Dirs: []string{"a", "b"}},
			"",
		},
		{
			"concat dirs missing args",
			SpecialCase{Site: SiteGR, Date: "20120423", Action: ActionConcatDirs, Dirs: []string{"a"}},
			"exactly two dirs",
		},
		{
			"merge into",
			SpecialCase{Site: SiteAN, Date: "20101026", Action: ActionMergeInto, Dirs: []string{"stray"}},
			"",
		},
		{
			"merge into too many dirs",
			SpecialCase{Site: SiteAN, Date: "20101026", Action: ActionMergeInto, Dirs: []string{"a", "b"}},
			"exactly one source dir",
		},
		{
			"bad site",
			SpecialCase{Site: "XX", Date: "20100422", Action: ActionFetchNextDay},
			"site must be AN or GR",
		},
		{
			"bad date",
			SpecialCase{Site: SiteGR, Date: "201004", Action: ActionFetchNextDay},
			"invalid flight date",
		},
		{
			"unknown action",
			SpecialCase{Site: SiteGR, Date: "20100422", Action: "rename"},
			"unknown action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate(): %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}
