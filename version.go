package atsreport

import "github.com/prometheus/common/version"

// Version is reported to the collector as the ats.zbx_version item
const Version = "0.0.8"

func init() {
	if version.Version == "" {
		version.Version = Version
	}
}
