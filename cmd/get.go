package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/courier/pkg/client"
	"github.com/giantswarm/courier/pkg/content"
)

// Output formats of the request commands.
const (
	outputRaw   = "raw"
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

var (
	requestOutput      string
	requestHeaders     []string
	requestData        string
	requestContentType string
)

var getCmd = &cobra.Command{
	Use:   "get <url-or-path>",
	Short: "Fetch a resource",
	Long: `Fetch a resource from the service of the selected profile.

Relative paths are resolved against the profile's baseURL. Structured
responses (JSON, XML, YAML) are decoded and re-rendered in the requested
output format; raw output writes the body unchanged.

Examples:
  courier get /user
  courier get -p flickr "https://api.flickr.com/services/rest?method=flickr.test.login"
  courier get /repos/giantswarm/courier -o table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, http.MethodGet, args[0])
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <method> <url-or-path>",
	Short: "Send a request with an optional body",
	Long: `Send a request with an arbitrary method.

The body is taken from --data; a value starting with @ names a file and "@-"
reads standard input.

Examples:
  courier send POST /repos/o/r/issues --data '{"title":"bug"}' --content-type application/json
  courier send PUT /upload --data @photo.png --content-type image/png
  courier send DELETE /repos/o/r/issues/1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, strings.ToUpper(args[0]), args[1])
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(sendCmd)

	for _, c := range []*cobra.Command{getCmd, sendCmd} {
		c.Flags().StringVarP(&requestOutput, "output", "o", outputJSON, "Output format: raw, json, yaml, table")
		c.Flags().StringArrayVarP(&requestHeaders, "header", "H", nil, "Extra request header as 'Name: value' (repeatable)")
		_ = c.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{outputRaw, outputJSON, outputYAML, outputTable}, cobra.ShellCompDirectiveNoFileComp
		})
	}
	sendCmd.Flags().StringVarP(&requestData, "data", "d", "", "Request body, @file or @- for stdin")
	sendCmd.Flags().StringVar(&requestContentType, "content-type", "", "Content type of the request body")
}

func runRequest(cmd *cobra.Command, method, target string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	uri, err := s.resolve(target)
	if err != nil {
		return err
	}

	header, err := parseHeaders(requestHeaders)
	if err != nil {
		return err
	}
	req := client.Request{Method: method, URL: uri, Header: header}
	if requestData != "" {
		data, err := readData(requestData, cmd.InOrStdin())
		if err != nil {
			return err
		}
		req.Body = content.New(requestContentType, data)
	}

	out := cmd.OutOrStdout()
	if requestOutput == outputRaw {
		var raw content.Content
		if err := s.client.Do(ctx, req, &raw); err != nil {
			return err
		}
		data, err := raw.Bytes()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	var value any
	if err := s.client.Do(ctx, req, &value); err != nil {
		if errors.Is(err, content.ErrUnsupportedType) {
			return fmt.Errorf("%w (converters: %s; use --output raw)", err,
				strings.Join(converterNames(s.client.Registry()), ", "))
		}
		return err
	}
	return render(out, requestOutput, value)
}

// converterNames lists the registered converters in resolution order.
func converterNames(r *content.Registry) []string {
	var names []string
	for _, c := range r.Converters() {
		names = append(names, c.Name())
	}
	return names
}

func parseHeaders(lines []string) (http.Header, error) {
	header := http.Header{}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", line)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return header, nil
}

func readData(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "@-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		return []byte(arg), nil
	}
}

// render writes a decoded response in the selected format.
func render(w io.Writer, format string, value any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(value)
	case outputTable:
		renderTable(w, value)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func renderTable(w io.Writer, value any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	switch v := value.(type) {
	case []any:
		columns := tableColumns(v)
		header := make(table.Row, len(columns))
		for i, c := range columns {
			header[i] = strings.ToUpper(c)
		}
		t.AppendHeader(header)
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				t.AppendRow(table.Row{cell(item)})
				continue
			}
			row := make(table.Row, len(columns))
			for i, c := range columns {
				row[i] = cell(m[c])
			}
			t.AppendRow(row)
		}
	case map[string]any:
		t.AppendHeader(table.Row{"FIELD", "VALUE"})
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.AppendRow(table.Row{k, cell(v[k])})
		}
	default:
		t.AppendRow(table.Row{cell(v)})
	}
	t.Render()
}

// tableColumns collects the scalar keys of a list of objects.
func tableColumns(items []any) []string {
	seen := map[string]bool{}
	var columns []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for k, v := range m {
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		columns = []string{"value"}
	}
	return columns
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		data, _ := json.Marshal(t)
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}
