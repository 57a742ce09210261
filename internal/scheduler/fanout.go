package scheduler

// Split implements the Result Stream Fan-out (C3): given the internal
// result channel of a single invocation, it produces an independent UI
// stream and background (BG) stream that agree on every chunk.
//
// Single-step path: the one value (or error) is read once and written
// to both streams, which then close — a completed-once value shared by
// two consumers rather than two separate reads of the source channel.
//
// Multi-step path: a small goroutine reads the first chunk and writes it
// to both streams, then closes the UI stream (the acknowledgement
// contract with the LLM only needs the first observable chunk) while
// continuing to forward every subsequent chunk to the BG stream alone.
func Split(multiStep bool, src <-chan Result) (ui <-chan Result, bg <-chan Result) {
	if !multiStep {
		return splitSingle(src)
	}
	return splitMultiStep(src)
}

func splitSingle(src <-chan Result) (<-chan Result, <-chan Result) {
	uiCh := make(chan Result, 1)
	bgCh := make(chan Result, 1)
	go func() {
		defer close(uiCh)
		defer close(bgCh)
		r, ok := <-src
		if !ok {
			r = errResult("empty result")
		}
		uiCh <- r
		bgCh <- r
	}()
	return uiCh, bgCh
}

func splitMultiStep(src <-chan Result) (<-chan Result, <-chan Result) {
	uiCh := make(chan Result, 1)
	bgCh := make(chan Result, cap(src))
	if cap(bgCh) == 0 {
		bgCh = make(chan Result, 16)
	}
	go func() {
		defer close(uiCh)
		defer close(bgCh)

		first, ok := <-src
		if !ok {
			r := errResult("empty result")
			uiCh <- r
			bgCh <- r
			return
		}
		uiCh <- first
		bgCh <- first

		for r := range src {
			bgCh <- r
		}
	}()
	return uiCh, bgCh
}
