package models

// StaticServerSpec selects one of the preconfigured servers from
// config.yaml, either by name or by asking for the default.
//
// When both ServerName and UseDefault are set the explicit name wins;
// resolution never falls back to the default in that case.
type StaticServerSpec struct {
	UseDefault bool   `json:"useDefault"`
	ServerName string `json:"serverName"`
}

// DynamicEMRServerSpec selects an EMR cluster in dynamic mode. Exactly
// one of the three identifiers should be set.
type DynamicEMRServerSpec struct {
	ClusterArn  string `json:"emrClusterArn"`
	ClusterID   string `json:"emrClusterId"`
	ClusterName string `json:"emrClusterName"`
}

// IsEmpty reports whether no identifier is set.
func (d DynamicEMRServerSpec) IsEmpty() bool {
	return d.ClusterArn == "" && d.ClusterID == "" && d.ClusterName == ""
}

// ServerSpec is the discriminated union carried by every tool call to
// select which Spark server to talk to. A spec of the wrong shape for
// the active mode is a hard input error.
type ServerSpec struct {
	Static  *StaticServerSpec
	Dynamic *DynamicEMRServerSpec
}
