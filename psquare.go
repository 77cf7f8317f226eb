package threadmaster

// latencyQuantiles backs AccountingEntry's streaming P50/P95/P99 estimates
// (accounting.go). Built on Jain & Chlamtac's P² algorithm ("The P²
// Algorithm for Dynamic Calculation of Quantiles and Histograms Without
// Storing Observations", CACM 28(10), 1985): each tracked percentile keeps
// five marker heights and adjusts them per observation in O(1), with no
// retained sample history — the shape accounting needs, since a Task
// function may be called millions of times over a process's life and
// retaining every duration is not an option.
//
// Not safe for concurrent use; AccountingEntry serializes access with its
// own mutex.
type latencyQuantiles struct {
	markers []*percentileMarkers
}

// newLatencyQuantiles builds one marker set per requested percentile
// (each in [0.0, 1.0], e.g. 0.50, 0.95, 0.99).
func newLatencyQuantiles(percentiles ...float64) *latencyQuantiles {
	lq := &latencyQuantiles{markers: make([]*percentileMarkers, len(percentiles))}
	for i, p := range percentiles {
		lq.markers[i] = newPercentileMarkers(p)
	}
	return lq
}

// Update feeds one observation (a duration in microseconds) to every
// tracked percentile.
func (lq *latencyQuantiles) Update(x float64) {
	for _, m := range lq.markers {
		m.update(x)
	}
}

// Quantile returns the current estimate for the i-th percentile passed to
// newLatencyQuantiles, or 0 if i is out of range.
func (lq *latencyQuantiles) Quantile(i int) float64 {
	if i < 0 || i >= len(lq.markers) {
		return 0
	}
	return lq.markers[i].value()
}

// Reset discards all accumulated state, re-seeding each marker set at its
// original target percentile — used by AccountingTable.Clear.
func (lq *latencyQuantiles) Reset() {
	for _, m := range lq.markers {
		*m = *newPercentileMarkers(m.p)
	}
}

// percentileMarkers is the five-marker P² estimator for one target
// percentile p.
type percentileMarkers struct {
	p float64

	q  [5]float64 // marker heights
	n  [5]int     // marker positions
	np [5]float64 // desired marker positions
	dn [5]float64 // per-observation increment to the desired positions

	count int
	seed  [5]float64 // buffers the first 5 observations before markers exist
}

func newPercentileMarkers(p float64) *percentileMarkers {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &percentileMarkers{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (m *percentileMarkers) update(x float64) {
	m.count++

	if m.count <= 5 {
		m.seed[m.count-1] = x
		if m.count == 5 {
			m.seedMarkers()
		}
		return
	}

	var k int
	switch {
	case x < m.q[0]:
		m.q[0] = x
		k = 0
	case x >= m.q[4]:
		m.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if m.q[k] <= x && x < m.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		m.n[i]++
	}
	for i := 0; i < 5; i++ {
		m.np[i] += m.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := m.np[i] - float64(m.n[i])
		if (d >= 1 && m.n[i+1]-m.n[i] > 1) || (d <= -1 && m.n[i-1]-m.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}

			qPrime := m.parabolic(i, sign)
			if m.q[i-1] < qPrime && qPrime < m.q[i+1] {
				m.q[i] = qPrime
			} else {
				m.q[i] = m.linear(i, sign)
			}
			m.n[i] += sign
		}
	}
}

// seedMarkers initializes the five markers from the first five
// observations, sorted into rank order.
func (m *percentileMarkers) seedMarkers() {
	for i := 1; i < 5; i++ {
		key := m.seed[i]
		j := i - 1
		for j >= 0 && m.seed[j] > key {
			m.seed[j+1] = m.seed[j]
			j--
		}
		m.seed[j+1] = key
	}

	for i := 0; i < 5; i++ {
		m.q[i] = m.seed[i]
		m.n[i] = i
	}
	m.np = [5]float64{0, 2 * m.p, 4 * m.p, 2 + 2*m.p, 4}
}

func (m *percentileMarkers) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(m.n[i])
	niPrev := float64(m.n[i-1])
	niNext := float64(m.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (m.q[i+1] - m.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (m.q[i] - m.q[i-1]) / (ni - niPrev)

	return m.q[i] + term1*(term2+term3)
}

func (m *percentileMarkers) linear(i, d int) float64 {
	if d == 1 {
		return m.q[i] + (m.q[i+1]-m.q[i])/float64(m.n[i+1]-m.n[i])
	}
	return m.q[i] - (m.q[i]-m.q[i-1])/float64(m.n[i]-m.n[i-1])
}

// value returns the current quantile estimate, falling back to a sorted
// lookup over the seed buffer while fewer than five observations have
// been seen.
func (m *percentileMarkers) value() float64 {
	if m.count == 0 {
		return 0
	}
	if m.count < 5 {
		sorted := make([]float64, m.count)
		copy(sorted, m.seed[:m.count])
		for i := 1; i < m.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(m.count-1) * m.p)
		if index >= m.count {
			index = m.count - 1
		}
		return sorted[index]
	}
	return m.q[2]
}
