// dumpgraph runs Scan Mode over a dump stream and renders the resulting
// untangle triggers as a graphviz graph: one node per revision involved,
// one edge per copy whose source falls outside the selected paths or
// lies in a revision that renumbering would drop.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/emicklei/dot"
	"github.com/goccy/go-graphviz"
	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svndumpfilter2/filter"
	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/record"
)

func main() {
	var (
		file = kingpin.Arg(
			"dumpfile",
			"Dump file to scan.",
		).Required().String()
		mode = kingpin.Arg(
			"mode",
			"Whether the given paths are included or excluded.",
		).Required().Enum("include", "exclude")
		paths           = kingpin.Arg("paths", "Repository paths to include or exclude.").Strings()
		output          = kingpin.Flag("output", "PNG file to write the graph to.").Short('o').Default("dumpgraph.png").String()
		dotOutput       = kingpin.Flag("dot", "Also write the raw DOT source to this file.").String()
		keepEmptyRevs   = kingpin.Flag("keep-empty-revs", "Assume -k when deciding whether a copy source revision would be dropped.").Short('k').Bool()
		stopRenumbering = kingpin.Flag("stop-renumbering", "Assume -s when deciding whether a copy source revision would be dropped.").Short('s').Bool()
		debug           = kingpin.Flag("debug", "Enable debugging level.").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("dumpgraph")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Visualizes untangle triggers found by scanning an SVN dump stream.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	matchMode := pathmatch.Include
	if *mode == "exclude" {
		matchMode = pathmatch.Exclude
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("dumpgraph"))
	logger.Infof("Starting %s, dumpfile: %v", startTime, *file)

	findings, err := scan(*file, matchMode, *paths, *keepEmptyRevs, *stopRenumbering)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("%d untangle trigger(s) found", len(findings))

	g := buildGraph(findings)

	if *dotOutput != "" {
		if err := os.WriteFile(*dotOutput, []byte(g.String()), 0644); err != nil {
			logger.Errorf("failed to write dot file: %v", err)
			os.Exit(1)
		}
	}

	if err := renderPNG(g, *output); err != nil {
		logger.Errorf("failed to render graph: %v", err)
		os.Exit(1)
	}
	logger.Infof("Finished in %v", time.Since(startTime))
}

func scan(path string, mode pathmatch.Mode, paths []string, preserveEmpty, stopRenumbering bool) ([]filter.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser := record.NewParser(record.NewByteReader(bufio.NewReader(f)))
	scanner := &filter.Scanner{
		Parser:   parser,
		Matcher:  pathmatch.New(mode, paths),
		Renumber: filter.NewRenumberMap(preserveEmpty, stopRenumbering),
	}
	return scanner.Scan()
}

func buildGraph(findings []filter.Finding) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := make(map[int]dot.Node)

	revNode := func(rev int) dot.Node {
		if n, ok := nodes[rev]; ok {
			return n
		}
		n := g.Node(fmt.Sprintf("r%d", rev))
		nodes[rev] = n
		return n
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Revision < findings[j].Revision })
	for _, f := range findings {
		src := revNode(f.CopyfromRev)
		dst := revNode(f.Revision)
		g.Edge(src, dst, f.Path)
	}
	return g
}

func renderPNG(g *dot.Graph, path string) error {
	gv := graphviz.New()
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(g.String()))
	if err != nil {
		return err
	}
	defer parsed.Close()

	return gv.RenderFilename(parsed, graphviz.PNG, path)
}
