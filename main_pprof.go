//go:build !no_pprof

package main

import (
	"flag"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"fortio.org/log"
)

var (
	cpuProfile = flag.String("profile-cpu", "", "write cpu profile to `file`")
	memProfile = flag.String("profile-mem", "", "write memory profile to `file` at exit")
	traceFile  = flag.String("profile-trace", "", "write an execution trace to `file`, e.g. to see the worker and UI goroutines")
)

// open files for the hooks, closed by the after hook.
var profileFiles []*os.File

func init() {
	hookBefore = profileStart
	hookAfter = profileStop
}

func create(name, what string) (*os.File, bool) {
	f, err := os.Create(name)
	if err != nil {
		log.Errf("can't open file for %s: %v", what, err)
		return nil, false
	}
	profileFiles = append(profileFiles, f)
	log.Infof("Writing %s to %s", what, name)
	return f, true
}

func profileStart() int {
	if *cpuProfile != "" {
		f, ok := create(*cpuProfile, "cpu profile")
		if !ok {
			return 1
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return log.FErrf("can't start cpu profile: %v", err)
		}
	}
	if *traceFile != "" {
		f, ok := create(*traceFile, "execution trace")
		if !ok {
			return 1
		}
		if err := trace.Start(f); err != nil {
			return log.FErrf("can't start trace: %v", err)
		}
	}
	return 0
}

func profileStop() int {
	if *cpuProfile != "" {
		pprof.StopCPUProfile()
	}
	if *traceFile != "" {
		trace.Stop()
	}
	ret := 0
	if *memProfile != "" {
		if f, ok := create(*memProfile, "memory profile"); !ok {
			ret = 1
		} else if err := pprof.WriteHeapProfile(f); err != nil {
			ret = log.FErrf("can't write mem profile: %v", err)
		}
	}
	for _, f := range profileFiles {
		f.Close()
	}
	profileFiles = nil
	return ret
}
