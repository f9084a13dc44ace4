package insightvm

import (
	"encoding/json"
	"testing"
)

func TestAssetRefUnmarshal(t *testing.T) {
	t.Run("bare ID", func(t *testing.T) {
		var ref AssetRef
		if err := json.Unmarshal([]byte(`42`), &ref); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if ref.ID != 42 {
			t.Errorf("ID = %d, want 42", ref.ID)
		}
		if ref.Inline != nil {
			t.Error("Inline should be nil for bare ID")
		}
	})

	t.Run("inline object", func(t *testing.T) {
		var ref AssetRef
		data := []byte(`{"id": 7, "ip": "10.0.0.1", "hostName": "web01"}`)
		if err := json.Unmarshal(data, &ref); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if ref.ID != 7 {
			t.Errorf("ID = %d, want 7", ref.ID)
		}
		if ref.Inline == nil || ref.Inline.IP != "10.0.0.1" {
			t.Errorf("Inline = %+v, want IP 10.0.0.1", ref.Inline)
		}
	})

	t.Run("mixed list", func(t *testing.T) {
		var refs []AssetRef
		data := []byte(`[3, {"id": 4, "ip": "10.0.0.4"}, 5]`)
		if err := json.Unmarshal(data, &refs); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if len(refs) != 3 {
			t.Fatalf("got %d refs, want 3", len(refs))
		}
		if refs[0].ID != 3 || refs[1].ID != 4 || refs[2].ID != 5 {
			t.Errorf("IDs = %d,%d,%d", refs[0].ID, refs[1].ID, refs[2].ID)
		}
		if refs[1].Inline == nil {
			t.Error("refs[1].Inline should be set")
		}
	})

	t.Run("invalid shape", func(t *testing.T) {
		var ref AssetRef
		if err := json.Unmarshal([]byte(`"nope"`), &ref); err == nil {
			t.Error("expected error for string reference")
		}
	})
}

func TestSoftwareAliases(t *testing.T) {
	tests := []struct {
		name string
		sw   Software
		want [4]string // vendor, family, product, version
	}{
		{
			"primary fields",
			Software{Vendor: "Apache", Family: "Web", Name: "HTTPD", Version: "2.4"},
			[4]string{"Apache", "Web", "HTTPD", "2.4"},
		},
		{
			"alias fields",
			Software{Publisher: "Microsoft", Category: "OS", Product: "Windows", Release: "10"},
			[4]string{"Microsoft", "OS", "Windows", "10"},
		},
		{
			"all empty",
			Software{},
			[4]string{"Unknown", "Unknown", "Unknown", "Unknown"},
		},
		{
			"primary beats alias",
			Software{Vendor: "A", Publisher: "B"},
			[4]string{"A", "Unknown", "Unknown", "Unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := [4]string{tt.sw.VendorName(), tt.sw.FamilyName(), tt.sw.ProductName(), tt.sw.VersionName()}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
