// svndumpfilter2 reads an SVN dump stream, filters it to a selected
// subset of paths, and writes a byte-exact, loadable dump stream
// containing that subset. Unlike the stock svndumpfilter, copies whose
// source falls outside the selected paths are not dropped: they are
// rewritten into self-contained adds by consulting a live repository.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/perforce/p4prometheus/version"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svndumpfilter2/config"
	"github.com/rcowham/svndumpfilter2/dirtree"
	"github.com/rcowham/svndumpfilter2/filter"
	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/probe"
	"github.com/rcowham/svndumpfilter2/record"
)

func main() {
	var (
		input = kingpin.Arg(
			"input",
			"Input dump file, or - for stdin.",
		).Default("-").String()
		mode = kingpin.Arg(
			"mode",
			"Whether the given paths are included or excluded.",
		).Required().Enum("include", "exclude")
		paths = kingpin.Arg(
			"paths",
			"Repository paths to include or exclude.",
		).Strings()
		pathsFile = kingpin.Flag(
			"file",
			"Read newline-separated paths from this file in addition to any given on the command line; blank lines and lines starting with # are ignored.",
		).String()
		repo = kingpin.Flag(
			"repo",
			"Filesystem path to the live repository used to resolve copy sources outside the selected paths.",
		).Short('r').String()
		output = kingpin.Flag(
			"output",
			"Output dump file; defaults to stdout.",
		).Short('o').String()
		keepEmptyRevs = kingpin.Flag(
			"keep-empty-revs",
			"Keep revisions that end up with no content instead of dropping them.",
		).Short('k').Bool()
		stopRenumbering = kingpin.Flag(
			"stop-renumbering",
			"Emit every revision under its original number; never drop a revision.",
		).Short('s').Bool()
		stripMergeinfo = kingpin.Flag(
			"drop-mergeinfo",
			"Strip svn:mergeinfo from every node.",
		).Short('x').Bool()
		sniffMimeType = kingpin.Flag(
			"sniff-mime-type",
			"Detect svn:mime-type from content for nodes inlined by untangling that carry none.",
		).Bool()
		scan = kingpin.Flag(
			"scan",
			"Report untangle triggers for the given paths without writing output.",
		).Bool()
		startRevision = kingpin.Flag(
			"start-revision",
			"Parse but do not emit revisions below this number; use when appending to an existing output.",
		).Int()
		configFile = kingpin.Flag(
			"config",
			"YAML file of option defaults, overridden by any flag given explicitly.",
		).Short('c').String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
		cpuProfile = kingpin.Flag(
			"profile",
			"Write a CPU profile to the given directory.",
		).String()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svndumpfilter2")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Filters an SVN dump stream to a selected subset of paths without losing copy history.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile)).Stop()
	}

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	matchMode := pathmatch.Include
	if *mode == "exclude" {
		matchMode = pathmatch.Exclude
	}

	inputPath := *input
	if inputPath == "-" {
		inputPath = ""
	}

	allPaths := append([]string{}, *paths...)
	if *pathsFile != "" {
		filePaths, err := config.LoadPathsFile(*pathsFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		allPaths = append(allPaths, filePaths...)
	}

	opts := &config.Options{
		InputPath:       inputPath,
		OutputPath:      *output,
		Mode:            matchMode,
		Paths:           allPaths,
		RepoPath:        *repo,
		PreserveEmpty:   *keepEmptyRevs,
		StopRenumbering: *stopRenumbering,
		StripMergeinfo:  *stripMergeinfo,
		SniffMimeType:   *sniffMimeType,
		Scan:            *scan,
		StartRevision:   *startRevision,
		Debug:           *debug,
	}

	if *configFile != "" {
		defaults, err := config.LoadDefaultsFile(*configFile)
		if err != nil {
			logger.Errorf("error loading config file: %v", err)
			os.Exit(1)
		}
		opts.ApplyDefaults(defaults)
	}

	if err := opts.Validate(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("svndumpfilter2"))
	logger.Infof("Starting %s, input: %v", startTime, inputName(opts.InputPath))

	if err := run(opts, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("Finished in %v", time.Since(startTime))
}

func inputName(path string) string {
	if path == "" {
		return "(stdin)"
	}
	return path
}

func run(opts *config.Options, logger *logrus.Logger) error {
	in, err := openInput(opts.InputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	matcher := pathmatch.New(opts.Mode, opts.Paths)
	parser := record.NewParser(record.NewByteReader(in))

	if opts.Scan {
		scanner := &filter.Scanner{
			Parser:   parser,
			Matcher:  matcher,
			Renumber: filter.NewRenumberMap(opts.PreserveEmpty, opts.StopRenumbering),
		}
		findings, err := scanner.Scan()
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("r%d\t%s\tcopied from r%d\t%s\n", f.Revision, f.Path, f.CopyfromRev, f.CopyfromPath)
		}
		logger.Infof("%d untangle trigger(s) found", len(findings))
		return nil
	}

	out, err := openOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var rp probe.Probe
	var untangler *filter.Untangler
	if opts.RepoPath != "" {
		rp = &probe.SVNLook{RepoPath: opts.RepoPath}
		untangler = &filter.Untangler{
			Probe:         rp,
			Matcher:       matcher,
			Props:         &filter.PropertyRewriter{StripMergeinfo: opts.StripMergeinfo},
			SniffMimeType: opts.SniffMimeType,
		}
	}

	driver := &filter.Driver{
		Parser:        parser,
		Matcher:       matcher,
		Probe:         rp,
		Untangler:     untangler,
		Renumber:      filter.NewRenumberMap(opts.PreserveEmpty, opts.StopRenumbering),
		Props:         &filter.PropertyRewriter{StripMergeinfo: opts.StripMergeinfo},
		Tree:          &dirtree.Tree{},
		StartRevision: opts.StartRevision,
	}
	return driver.Run(out)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
