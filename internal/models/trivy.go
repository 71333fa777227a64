package models

// TrivyReport mirrors the JSON document trivy writes with --format json.
// Only the fields the aggregation pipeline consumes are mapped.
type TrivyReport struct {
	SchemaVersion int           `json:"SchemaVersion,omitempty"`
	ArtifactName  string        `json:"ArtifactName,omitempty"`
	Results       []TrivyResult `json:"Results"`
}

// TrivyResult is one scanned layer or package group within a report.
type TrivyResult struct {
	Target          string               `json:"Target"`
	Type            string               `json:"Type,omitempty"`
	Vulnerabilities []TrivyVulnerability `json:"Vulnerabilities"`
}

// TrivyVulnerability is a single vulnerability entry in the raw output.
type TrivyVulnerability struct {
	VulnerabilityID  string `json:"VulnerabilityID"`
	PkgName          string `json:"PkgName"`
	InstalledVersion string `json:"InstalledVersion"`
	FixedVersion     string `json:"FixedVersion,omitempty"`
	Severity         string `json:"Severity"`
	Title            string `json:"Title,omitempty"`
	Description      string `json:"Description,omitempty"`
}

// Findings flattens the raw report into the ordered finding list,
// preserving the scanner's result and vulnerability order.
func (r *TrivyReport) Findings() []Finding {
	var findings []Finding
	for _, res := range r.Results {
		for _, v := range res.Vulnerabilities {
			findings = append(findings, Finding{
				ID:               v.VulnerabilityID,
				Severity:         v.Severity,
				PackageName:      v.PkgName,
				InstalledVersion: v.InstalledVersion,
				FixedVersion:     v.FixedVersion,
				Title:            v.Title,
				Description:      v.Description,
			})
		}
	}
	return findings
}
