package report

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/runnerr0/apachestats/internal/logrecord"
)

var baseColumns = []string{"remote_host", "request_time", "request_line", "final_status", "bytes_sent"}

// Records dumps the record field types and every record as a table.
// It is a debugging aid; its layout is not stable.
func Records(w io.Writer, records []logrecord.Record) error {
	fmt.Fprintln(w, "FIELD TYPES:")
	rt := reflect.TypeOf(logrecord.Record{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		fmt.Fprintf(w, "%-12s %s\n", f.Name, f.Type)
	}

	headerSet := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Headers {
			headerSet[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(headerSet))
	for k := range headerSet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	data := pterm.TableData{append(append([]string{}, baseColumns...), headers...)}
	for _, r := range records {
		row := []string{
			r.RemoteHost,
			r.RequestTime.Format(time.RFC3339),
			r.RequestLine,
			strconv.Itoa(r.FinalStatus),
			strconv.FormatInt(r.BytesSent, 10),
		}
		for _, h := range headers {
			v, ok := r.Headers[h]
			if !ok {
				v = "-"
			}
			row = append(row, v)
		}
		data = append(data, row)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render records: %w", err)
	}
	fmt.Fprintln(w, table)
	_, err = fmt.Fprintf(w, "[%d rows x %d columns]\n", len(records), len(data[0]))
	return err
}
