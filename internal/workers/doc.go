/*
Package workers sizes worker pools from GOMAXPROCS so that containers with a
CPU limit are not oversubscribed. runtime.NumCPU reports host CPUs; GOMAXPROCS
follows the cgroup limit on Go 1.19+.

	// thumbnail batch cycle size
	perCycle := workers.ForCPU(4)

	// asset tree walkers
	walkers := workers.ForIO(8)

	// cache warming
	warmers := workers.ForMixed(6)

Operators can pin the count with THUMBNAIL_WORKERS, which startup passes to
SetOverride. The caller's limit still applies to an override.
*/
package workers
