package cli

// Options holds the command-line flags. Zero values never override the
// configuration; only flags given on the command line do.
type Options struct {
	WebSite    string `short:"w" long:"web-site" description:"Domain of the analyzed site; referrers ending with it are ignored" value-name:"DOMAIN"`
	MaxMindDB  string `short:"m" long:"maxmind-db" description:"Path to a MaxMind City database for visitor locations" value-name:"FILE"`
	Verbose    bool   `short:"v" long:"verbose" description:"Dump parsed records and report unparsable lines"`
	TopK       int    `short:"k" long:"top-k" description:"Number of entries per ranked list" value-name:"K"`
	Config     string `short:"c" long:"config" description:"Path to config file" value-name:"FILE"`
	JSON       bool   `long:"json" description:"Output the report in JSON format"`
	Engine     string `long:"engine" description:"Aggregation engine" choice:"memory" choice:"sqlite"`
	Format     string `long:"format" description:"Log format: combined, common, or a $variable format string"`
	SQLitePath string `long:"sqlite-path" description:"Scratch database file for the sqlite engine (default in-memory)" value-name:"FILE"`
	LogLevel   string `long:"log-level" description:"Diagnostic log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	Version    bool   `long:"version" description:"Show version and exit"`

	Args struct {
		Logs []string `positional-arg-name:"LOG" description:"Log files to analyze; - or none reads standard input"`
	} `positional-args:"yes"`
}
