// dumpbatch runs the core filter over a batch of independent input dump
// files concurrently, one filter pass per file, using a worker pool
// sized to the host. Each pass is itself strictly single-threaded;
// pond.WorkerPool only bounds how many passes run at once.
package main

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svndumpfilter2/dirtree"
	"github.com/rcowham/svndumpfilter2/filter"
	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/probe"
	"github.com/rcowham/svndumpfilter2/record"
)

func main() {
	var (
		mode = kingpin.Arg(
			"mode",
			"Whether the given paths are included or excluded.",
		).Required().Enum("include", "exclude")
		files = kingpin.Arg(
			"dumpfiles",
			"Dump files to filter, one pass each.",
		).Required().Strings()
		outputDir = kingpin.Flag(
			"output-dir",
			"Directory to write <basename>.filtered for each input.",
		).Short('d').Required().String()
		// paths is a flag rather than a second positional group: kingpin
		// allows only one variadic positional argument per command, and
		// dumpfiles already claims that slot.
		paths     = kingpin.Flag("path", "Repeatable: a path to include or exclude.").Required().Strings()
		repo      = kingpin.Flag("repo", "Repository path shared by every pass, for untangling.").Short('r').String()
		workers   = kingpin.Flag("workers", "Max concurrent passes (default: number of CPUs).").Int()
		keepEmpty = kingpin.Flag("keep-empty-revs", "Keep revisions with no content.").Short('k').Bool()
		debug     = kingpin.Flag("debug", "Enable debugging level.").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("dumpbatch")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Runs the dump filter over many independent input files concurrently.\n"
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

	poolSize := *workers
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("dumpbatch"))
	logger.Infof("Starting %s, %d file(s), %d worker(s)", startTime, len(*files), poolSize)

	pool := pond.New(poolSize, 0, pond.MinWorkers(1))

	var mu sync.Mutex
	failures := 0

	for _, f := range *files {
		f := f
		pool.Submit(func() {
			outPath := filepath.Join(*outputDir, filepath.Base(f)+".filtered")
			if err := runOne(f, outPath, matchMode, *paths, *repo, *keepEmpty); err != nil {
				logger.Errorf("%s: %v", f, err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}
			logger.Infof("%s -> %s", f, outPath)
		})
	}
	pool.StopAndWait()

	logger.Infof("Finished in %v, %d failure(s)", time.Since(startTime), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func runOne(inPath, outPath string, mode pathmatch.Mode, paths []string, repoPath string, keepEmpty bool) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	matcher := pathmatch.New(mode, paths)
	parser := record.NewParser(record.NewByteReader(bufio.NewReader(in)))

	var rp probe.Probe
	var untangler *filter.Untangler
	if repoPath != "" {
		rp = &probe.SVNLook{RepoPath: repoPath}
		untangler = &filter.Untangler{
			Probe:   rp,
			Matcher: matcher,
			Props:   &filter.PropertyRewriter{},
		}
	}

	driver := &filter.Driver{
		Parser:    parser,
		Matcher:   matcher,
		Probe:     rp,
		Untangler: untangler,
		Renumber:  filter.NewRenumberMap(keepEmpty, false),
		Props:     &filter.PropertyRewriter{},
		Tree:      &dirtree.Tree{},
	}
	return driver.Run(out)
}
