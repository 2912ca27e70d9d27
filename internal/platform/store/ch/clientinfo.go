package ch

import (
	"os"
	"runtime"
	"strings"

	"docmend/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo tags ledger connections so system.query_log shows which run wrote what.
// app is the reporting process, role what the connection is for ("ledger")
func BuildClientInfo(role, app string) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: orUnknown(app), Version: orUnknown(bi.Version)},
		{Name: "role", Version: orUnknown(role)},
		{Name: "commit", Version: orUnknown(bi.Commit)},
		{Name: "go", Version: runtime.Version()},
		{Name: "host", Version: orUnknown(host)},
	}}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
