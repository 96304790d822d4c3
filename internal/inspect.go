// Package internal hosts the read-only inspect dashboard: an HTML view over
// the badger keyspace plus live process stats, for poking at a running or
// stopped gateway without any tooling beyond a browser.
package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/process"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Kind      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

// StartInspectServer serves the dashboard on its own port, in its own
// goroutine. It only ever reads from the store.
func StartInspectServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = MessageMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := struct {
			Prefix string
			Items  []InspectRow
			Stats  map[string]any
		}{Prefix: prefix, Stats: ProcessStats()}

		if statsProvider != nil {
			for k, v := range statsProvider() {
				data.Stats[k] = v
			}
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// ProcessStats samples the gateway's own process: CPU, resident memory and
// OS status.
func ProcessStats() map[string]any {
	stats := map[string]any{
		"Time": time.Now().Format(time.RFC822),
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats["CPUPercent"] = fmt.Sprintf("%.1f", cpu)
	}
	if mem, err := p.MemoryInfo(); err == nil {
		stats["RSSMb"] = mem.RSS / (1024 * 1024)
	}
	if status, err := p.Status(); err == nil {
		stats["PidStatus"] = status
	}
	return stats
}

// MessageMapper decodes "msg:{pair}:{timestamp}:{uuid}" keys and surfaces the
// stored content and status.
func MessageMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Kind:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := strings.Split(key, ":")
	if len(parts) >= 4 && parts[0] == "msg" {
		row.Kind = "MESSAGE"
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).Format("15:04:05")
		}
		row.EntityID = parts[3]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
		var stored struct {
			Content string `json:"content"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(val, &stored); err == nil {
			row.Detail = fmt.Sprintf("[%s] %s", stored.Status, stored.Content)
		}
	}
	if len(parts) >= 2 && parts[0] == "user" {
		row.Kind = "USER"
		row.EntityID = parts[1]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
		var stored struct {
			Username string `json:"username"`
			IsOnline bool   `json:"isOnline"`
		}
		if err := json.Unmarshal(val, &stored); err == nil {
			row.Detail = fmt.Sprintf("%s online=%t", stored.Username, stored.IsOnline)
		}
	}
	return row
}
