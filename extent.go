package pntfs

// extentPlan is one entry of a multi-extent layout: a run of clusters
// starting at clusterStart, carrying byteLen bytes of payload (the
// last extent of a file may be shorter than clusterCount*clusterSize).
type extentPlan struct {
	clusterStart int
	byteLen      int
}

// findFreeSpace walks the bitmap in cluster order, tracking runs of
// free clusters, and returns the first run whose byte length is >=
// demanded. If no run is big enough it returns the largest run seen,
// per spec.md §4.3. provided is expressed in bytes.
func (v *Volume) findFreeSpace(demanded int) (start, provided int) {
	bestStart, bestLen := -1, 0
	runStart, runLen := -1, 0

	flushRun := func() (done bool) {
		if runLen == 0 {
			return false
		}
		runBytes := runLen * v.clusterSize
		if runBytes >= demanded {
			return true // caller records runStart/runLen as the answer
		}
		if runLen > bestLen {
			bestStart, bestLen = runStart, runLen
		}
		return false
	}

	for i := 0; i < v.clusterCount; i++ {
		if v.bitmap.isFree(i) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			continue
		}
		if flushRun() {
			return runStart, runLen * v.clusterSize
		}
		runLen = 0
	}
	if flushRun() {
		return runStart, runLen * v.clusterSize
	}
	if runLen > bestLen {
		bestStart, bestLen = runStart, runLen
	}
	if bestStart < 0 {
		return 0, 0
	}
	return bestStart, bestLen * v.clusterSize
}

// planExtents repeatedly consumes the largest/first-fit run available
// until totalBytes are accounted for. Per spec.md §4.3, each chosen run
// is marked used in the bitmap immediately so the next findFreeSpace
// call advances instead of returning the same clusters again.
// Termination requires strict progress: a zero-byte run at any step
// means out of space. A failed plan is not rolled back — extents
// already committed for earlier extents in this call stay marked used
// and orphaned, the same non-rollback the source design accepts for a
// failed multi-extent write (DESIGN.md Open Question decision 1).
func (v *Volume) planExtents(totalBytes int) ([]extentPlan, bool) {
	if totalBytes == 0 {
		return nil, true
	}
	var plan []extentPlan
	remaining := totalBytes
	for remaining > 0 {
		start, provided := v.findFreeSpace(remaining)
		if provided == 0 {
			return nil, false
		}
		use := provided
		if use > remaining {
			use = remaining
		}
		v.commitExtent(start, use)
		plan = append(plan, extentPlan{clusterStart: start, byteLen: use})
		remaining -= use
	}
	return plan, true
}

// commitExtent marks the clusters spanned by an extent as used in the
// bitmap without writing any payload bytes; used when the caller wants
// to reserve space before it has the final content (directory clusters
// allocated on demand in saveUID, for instance).
func (v *Volume) commitExtent(clusterStart, byteLen int) int {
	count := clustersFor(byteLen, v.clusterSize)
	v.bitmap.setRange(clusterStart, count, true)
	return count
}

// saveContinualSegment writes data into the clusters starting at
// clusterStart: full clusters, then a final short, zero-padded cluster
// for any remainder, marking every touched cluster used. Mirrors
// spec.md §4.3's save_continual_segment.
func (v *Volume) saveContinualSegment(data []byte, clusterStart int) {
	count := clustersFor(len(data), v.clusterSize)
	for i := 0; i < count; i++ {
		clusterIdx := clusterStart + i
		off := i * v.clusterSize
		end := off + v.clusterSize
		chunk := make([]byte, v.clusterSize)
		if end > len(data) {
			end = len(data)
		}
		copy(chunk, data[off:end])
		v.writeCluster(clusterIdx, chunk)
		v.bitmap.set(clusterIdx, true)
	}
}

// clustersFor returns ceil(byteLen/clusterSize), the cluster count a
// byte length occupies on disk (spec.md §4.3 edge case: the last
// extent may be short in bytes but whole in clusters).
func clustersFor(byteLen, clusterSize int) int {
	if byteLen <= 0 {
		return 0
	}
	return (byteLen + clusterSize - 1) / clusterSize
}
