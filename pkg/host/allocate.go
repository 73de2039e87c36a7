package host

// allocateChannelsToProcessors plans how chans audio channels are covered
// by processors that each consume numIn input channels and produce numOut
// output channels.
//
// The output offset advances in steps of numOut until every channel has a
// producer. The input offset advances by numIn per processor, wrapping
// modulo chans, so a processor needing more inputs than remain re-uses
// channels from the beginning. f is called once per planned processor
// with the input and output offsets; returning false stops the iteration
// (processor creation failed).
//
// AddTrack and Process both iterate with this function, and must keep
// doing so: the processor indices recorded at AddTrack line up with the
// windows recomputed during Process only because the iteration order is
// identical.
func allocateChannelsToProcessors(chans, numIn, numOut int, f func(indx, ondx int) bool) {
	indx := 0
	for ondx := 0; ondx < chans; ondx += numOut {
		if !f(indx, ondx) {
			return
		}
		indx += numIn
		indx %= chans
	}
}
