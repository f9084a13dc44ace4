package report

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testCSV = `Asset IP Address,Vulnerability ID,Vulnerability Severity Level,Vulnerability Title
10.0.0.1,ssl-weak-cipher,9,Weak SSL Cipher
10.0.0.1,ssh-old-proto,7,Old SSH Protocol
10.0.0.2,ssl-weak-cipher,9,Weak SSL Cipher
`

const testXML = `<?xml version="1.0"?>
<VulnerabilityReport>
  <nodes>
    <node address="10.0.0.1" risk-score="666634">
      <names>
        <name>web01.example.com</name>
      </names>
      <fingerprints>
        <os certainty="0.9" family="Linux" product="Ubuntu" vendor="Canonical"/>
      </fingerprints>
    </node>
    <node address="10.0.0.2" risk-score="1200">
      <names>
        <name>db01.example.com</name>
      </names>
      <fingerprints>
        <os certainty="0.8" family="Windows" product="Windows Server 2019" vendor="Microsoft"/>
      </fingerprints>
    </node>
  </nodes>
  <VulnerabilityDefinitions>
    <vulnerability id="ssl-weak-cipher" title="Weak SSL Cipher" severity="9">
      <description>
        <ContainerBlockElement>
          <Paragraph>The server accepts weak ciphers.</Paragraph>
        </ContainerBlockElement>
      </description>
      <solution>
        <ContainerBlockElement>
          <Paragraph>
            <Paragraph>OpenSSL</Paragraph>
            <Paragraph>Disable weak cipher suites. <URLLink LinkURL="https://example.com/fix">vendor advisory</URLLink></Paragraph>
          </Paragraph>
        </ContainerBlockElement>
      </solution>
    </vulnerability>
    <vulnerability id="ssh-old-proto" title="Old SSH Protocol" severity="7">
      <description>
        <ContainerBlockElement>
          <Paragraph>SSH protocol version 1 is enabled.</Paragraph>
        </ContainerBlockElement>
      </description>
      <solution>
        <ContainerBlockElement>
          <Paragraph>Set Protocol 2 in sshd_config.</Paragraph>
        </ContainerBlockElement>
      </solution>
    </vulnerability>
  </VulnerabilityDefinitions>
</VulnerabilityReport>
`

func writePair(t *testing.T, csvBody, xmlBody string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "Weekly.csv")
	xmlPath := filepath.Join(dir, "Weekly.xml")
	if err := os.WriteFile(csvPath, []byte(csvBody), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(xmlPath, []byte(xmlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return csvPath, xmlPath
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = file.Close() }()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestBuild(t *testing.T) {
	csvPath, xmlPath := writePair(t, testCSV, testXML)
	p := NewProcessor(zap.NewNop())

	artifacts, err := p.Build(csvPath, xmlPath)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if artifacts.BaseName != "Weekly" {
		t.Errorf("BaseName = %q, want Weekly", artifacts.BaseName)
	}

	t.Run("solution summary", func(t *testing.T) {
		records := readCSV(t, artifacts.SolutionPath)
		if len(records) != 4 { // header + 3 distinct (ip, solution) pairs
			t.Fatalf("got %d rows, want 4: %v", len(records), records)
		}
		header := records[0]
		want := []string{"Asset IP Address", "Services", "Solution Details", "Owner"}
		for i, col := range want {
			if header[i] != col {
				t.Errorf("header[%d] = %q, want %q", i, header[i], col)
			}
		}

		// first asset row carries product, hostname, and formatted risk
		asset := records[1][0]
		for _, fragment := range []string{"10.0.0.1", "Ubuntu", "web01.example.com", "(Risk: 666,634)"} {
			if !strings.Contains(asset, fragment) {
				t.Errorf("asset label %q missing %q", asset, fragment)
			}
		}
	})

	t.Run("nested solution split into service and details", func(t *testing.T) {
		records := readCSV(t, artifacts.SolutionPath)
		var found bool
		for _, row := range records[1:] {
			if row[1] == "OpenSSL" {
				found = true
				if !strings.Contains(row[2], "Disable weak cipher suites.") {
					t.Errorf("details = %q", row[2])
				}
				if !strings.Contains(row[2], "https://example.com/fix") {
					t.Errorf("details %q missing link URL", row[2])
				}
			}
		}
		if !found {
			t.Error("no row with service OpenSSL")
		}
	})

	t.Run("vuln summary", func(t *testing.T) {
		records := readCSV(t, artifacts.VulnPath)
		if len(records) != 4 { // header + 3 csv rows
			t.Fatalf("got %d rows, want 4", len(records))
		}
		// sorted by OS family: Linux rows before Windows rows
		if records[1][0] != "Linux" || records[3][0] != "Windows" {
			t.Errorf("OS order = %q, %q, %q", records[1][0], records[2][0], records[3][0])
		}
		// description joined from the XML definition
		var sshRow []string
		for _, row := range records[1:] {
			if row[2] == "ssh-old-proto" {
				sshRow = row
			}
		}
		if sshRow == nil {
			t.Fatal("no row for ssh-old-proto")
		}
		if sshRow[5] != "SSH protocol version 1 is enabled." {
			t.Errorf("description = %q", sshRow[5])
		}
	})
}

func TestBuild_MalformedCSV(t *testing.T) {
	csvPath, xmlPath := writePair(t, "Wrong,Header\n1,2\n", testXML)
	p := NewProcessor(zap.NewNop())

	_, err := p.Build(csvPath, xmlPath)
	var malformed *MalformedReportError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedReportError, got %T: %v", err, err)
	}
	if malformed.Path != csvPath {
		t.Errorf("Path = %q, want %q", malformed.Path, csvPath)
	}
}

func TestBuild_MalformedXML(t *testing.T) {
	csvPath, xmlPath := writePair(t, testCSV, "<not-closed")
	p := NewProcessor(zap.NewNop())

	_, err := p.Build(csvPath, xmlPath)
	var malformed *MalformedReportError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedReportError, got %T: %v", err, err)
	}
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{666634, "666,634"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := groupThousands(tt.in); got != tt.want {
			t.Errorf("groupThousands(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

