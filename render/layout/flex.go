package layout

// Sizes are border-box. A negative available size is indefinite.

func (b *box) inset(cw float64) (top, right, bottom, left float64) {
	pt, pr, pb, pl := b.st.padding.resolve(cw)
	bw := b.st.borderWidth
	return pt + bw, pr + bw, pb + bw, pl + bw
}

func (b *box) margin(cw float64) (top, right, bottom, left float64) {
	return b.st.margin.resolve(cw)
}

func (b *box) clampW(w, cw float64) float64 {
	if v, ok := b.st.maxW.resolve(cw); ok && w > v {
		w = v
	}
	if v, ok := b.st.minW.resolve(cw); ok && w < v {
		w = v
	}
	_, r, _, l := b.inset(cw)
	return max(w, l+r, 0)
}

func (b *box) clampH(h, ch, cw float64) float64 {
	if v, ok := b.st.maxH.resolve(ch); ok && h > v {
		h = v
	}
	if v, ok := b.st.minH.resolve(ch); ok && h < v {
		h = v
	}
	t, _, bt, _ := b.inset(cw)
	return max(h, t+bt, 0)
}

func (b *box) absolute() bool { return b.st.position == "absolute" }

func (b *box) align(parent *box) string {
	if b.st.alignSelf != "" {
		return b.st.alignSelf
	}
	return parent.st.alignItems
}

func shrinkAvail(avail, margins float64) float64 {
	if avail < 0 {
		return -1
	}
	return max(avail-margins, 0)
}

func (b *box) intrinsic() (w, h float64, ok bool) {
	if b.kind != kindImage || b.img == nil {
		return 0, 0, false
	}
	r := b.img.Bounds()
	return float64(r.Dx()), float64(r.Dy()), r.Dx() > 0 && r.Dy() > 0
}

func (b *box) wrap(innerW float64) []line {
	if l, ok := b.wrapped[innerW]; ok {
		return l
	}
	l := b.eng.ts.wrap(b.text, b.st, innerW)
	b.wrapped[innerW] = l
	return l
}

func (b *box) lineHeight() float64 { return b.st.fontSize * b.st.lineHeight }

// prefWidth is the width b takes when offered avail.
func (b *box) prefWidth(avail float64) float64 {
	if w, ok := b.prefW[avail]; ok {
		return w
	}
	w := b.computePrefWidth(avail)
	b.prefW[avail] = w
	return w
}

func (b *box) computePrefWidth(avail float64) float64 {
	if v, ok := b.st.width.resolve(avail); ok {
		return b.clampW(v, avail)
	}
	_, r, _, l := b.inset(avail)
	inner := shrinkAvail(avail, l+r)

	var content float64
	switch b.kind {
	case kindText:
		content = widest(b.wrap(inner))
	case kindImage:
		if iw, ih, ok := b.intrinsic(); ok {
			content = iw
			if h, ok := b.st.height.resolve(-1); ok {
				content = h * iw / ih
			}
		}
	case kindIcon:
	default:
		row := b.st.direction == "row"
		n := 0
		for _, c := range b.children {
			if c.absolute() {
				continue
			}
			_, mr, _, ml := c.margin(inner)
			cw := c.prefWidth(shrinkAvail(inner, ml+mr)) + ml + mr
			if row {
				content += cw
				n++
			} else {
				content = max(content, cw)
			}
		}
		if n > 1 {
			content += b.st.columnGap * float64(n-1)
		}
		if row && b.st.wrap && inner >= 0 {
			content = min(content, inner)
		}
	}
	return b.clampW(content+l+r, avail)
}

// contentHeight is the height b needs at border-box width w.
func (b *box) contentHeight(w float64) float64 {
	if h, ok := b.prefH[w]; ok {
		return h
	}
	t, r, bt, l := b.inset(w)
	inner := max(w-l-r, 0)

	var content float64
	switch b.kind {
	case kindText:
		content = float64(len(b.wrap(inner))) * b.lineHeight()
	case kindImage:
		if iw, ih, ok := b.intrinsic(); ok {
			content = inner * ih / iw
		}
	case kindIcon:
	default:
		lines := b.collect(inner, -1)
		if b.st.direction == "row" {
			for i, ln := range lines {
				content += ln.cross
				if i > 0 {
					content += b.st.rowGap
				}
			}
		} else {
			for _, ln := range lines {
				content = max(content, ln.used)
			}
		}
	}
	h := b.clampH(content+t+bt, -1, w)
	b.prefH[w] = h
	return h
}

type item struct {
	b           *box
	main, cross float64
	base        float64
	// Margins along the main and cross axes.
	mStart, mEnd float64
	cStart, cEnd float64
	autoStart    bool
	autoEnd      bool
	crossSet     bool
}

type flexLine struct {
	items []*item
	used  float64
	cross float64
}

// collect sizes the in-flow children of b for a content box of
// innerW x innerH and breaks them into lines.
func (b *box) collect(innerW, innerH float64) []*flexLine {
	row := b.st.direction == "row"
	mainSize, crossSize, gap := innerW, innerH, b.st.columnGap
	if !row {
		mainSize, crossSize, gap = innerH, innerW, b.st.rowGap
	}

	var items []*item
	for _, c := range b.children {
		if c.absolute() {
			continue
		}
		it := &item{b: c}
		mt, mr, mb, ml := c.margin(innerW)
		stretch := c.align(b) == "stretch"
		if row {
			it.mStart, it.mEnd, it.cStart, it.cEnd = ml, mr, mt, mb
			it.autoStart, it.autoEnd = c.st.margin[3].auto, c.st.margin[1].auto
			switch {
			case c.st.basis.set && !c.st.basis.auto && (innerW >= 0 || !c.st.basis.pct):
				it.base, _ = c.st.basis.resolve(innerW)
			default:
				if v, ok := c.st.width.resolve(innerW); ok {
					it.base = v
				} else {
					it.base = c.prefWidth(shrinkAvail(innerW, ml+mr))
				}
			}
			it.main = c.clampW(it.base, innerW)
		} else {
			it.mStart, it.mEnd, it.cStart, it.cEnd = mt, mb, ml, mr
			it.autoStart, it.autoEnd = c.st.margin[0].auto, c.st.margin[2].auto
			avail := shrinkAvail(innerW, ml+mr)
			if v, ok := c.st.width.resolve(innerW); ok {
				it.cross = c.clampW(v, innerW)
				it.crossSet = true
			} else if stretch && avail >= 0 {
				it.cross = c.clampW(avail, innerW)
			} else {
				it.cross = c.prefWidth(avail)
				if avail >= 0 {
					it.cross = min(it.cross, c.clampW(avail, innerW))
				}
			}
			switch {
			case c.st.basis.set && !c.st.basis.auto && (innerH >= 0 || !c.st.basis.pct):
				it.base, _ = c.st.basis.resolve(innerH)
			default:
				if v, ok := c.st.height.resolve(innerH); ok {
					it.base = v
				} else {
					it.base = c.contentHeight(it.cross)
				}
			}
			it.main = c.clampH(it.base, innerH, innerW)
		}
		items = append(items, it)
	}

	var lines []*flexLine
	cur := &flexLine{}
	for _, it := range items {
		outer := it.main + it.mStart + it.mEnd
		if b.st.wrap && mainSize >= 0 && len(cur.items) > 0 && cur.used+gap+outer > mainSize {
			lines = append(lines, cur)
			cur = &flexLine{}
		}
		if len(cur.items) > 0 {
			cur.used += gap
		}
		cur.items = append(cur.items, it)
		cur.used += outer
	}
	if len(cur.items) > 0 {
		lines = append(lines, cur)
	}

	for _, ln := range lines {
		if mainSize >= 0 {
			b.flexLine(ln, mainSize, innerW, innerH, row)
		}
		for _, it := range ln.items {
			c := it.b
			if row {
				if v, ok := c.st.height.resolve(innerH); ok {
					it.cross = c.clampH(v, innerH, innerW)
					it.crossSet = true
				} else {
					it.cross = c.clampH(c.contentHeight(it.main), innerH, innerW)
				}
			}
			ln.cross = max(ln.cross, it.cross+it.cStart+it.cEnd)
		}
		if len(lines) == 1 && crossSize >= 0 {
			ln.cross = crossSize
		}
		for _, it := range ln.items {
			if it.crossSet || it.b.align(b) != "stretch" {
				continue
			}
			stretched := ln.cross - it.cStart - it.cEnd
			if row {
				it.cross = it.b.clampH(stretched, innerH, innerW)
			} else {
				it.cross = it.b.clampW(stretched, innerW)
			}
		}
	}
	return lines
}

// flexLine grows or shrinks the items of ln to fill mainSize.
func (b *box) flexLine(ln *flexLine, mainSize, innerW, innerH float64, row bool) {
	free := mainSize - ln.used
	clamp := func(it *item, v float64) float64 {
		if row {
			return it.b.clampW(v, innerW)
		}
		return it.b.clampH(v, innerH, innerW)
	}
	var total float64
	switch {
	case free > 0:
		for _, it := range ln.items {
			total += it.b.st.grow
		}
		if total == 0 {
			return
		}
		for _, it := range ln.items {
			before := it.main
			it.main = clamp(it, it.main+free*it.b.st.grow/total)
			ln.used += it.main - before
		}
	case free < 0:
		for _, it := range ln.items {
			total += it.b.st.shrink * it.base
		}
		if total == 0 {
			return
		}
		for _, it := range ln.items {
			before := it.main
			it.main = clamp(it, max(it.main+free*it.b.st.shrink*it.base/total, 0))
			ln.used += it.main - before
		}
	}
}

func justify(mode string, free float64, n int) (start, between float64) {
	switch mode {
	case "center":
		return free / 2, 0
	case "flex-end", "end", "right":
		return free, 0
	}
	if free <= 0 || n == 0 {
		return 0, 0
	}
	switch mode {
	case "space-between":
		if n > 1 {
			return 0, free / float64(n-1)
		}
	case "space-around":
		return free / float64(n) / 2, free / float64(n)
	case "space-evenly":
		s := free / float64(n+1)
		return s, s
	}
	return 0, 0
}

// place lays out the descendants of b. Its own geometry must be set.
func (b *box) place() {
	if b.kind != kindElement {
		return
	}
	t, r, bt, l := b.inset(b.w)
	innerW, innerH := max(b.w-l-r, 0), max(b.h-t-bt, 0)
	ox, oy := b.x+l, b.y+t
	row := b.st.direction == "row"
	mainSize, gap, crossGap := innerW, b.st.columnGap, b.st.rowGap
	if !row {
		mainSize, gap, crossGap = innerH, b.st.rowGap, b.st.columnGap
	}

	crossPos := 0.0
	for _, ln := range b.collect(innerW, innerH) {
		free := mainSize - ln.used
		autos := 0
		for _, it := range ln.items {
			if it.autoStart {
				autos++
			}
			if it.autoEnd {
				autos++
			}
		}
		var pos, between, autoShare float64
		if autos > 0 && free > 0 {
			autoShare = free / float64(autos)
		} else {
			pos, between = justify(b.st.justify, free, len(ln.items))
		}
		for _, it := range ln.items {
			if it.autoStart {
				pos += autoShare
			}
			mainStart := pos + it.mStart

			var off float64
			switch it.b.align(b) {
			case "center":
				off = (ln.cross - it.cross - it.cStart - it.cEnd) / 2
			case "flex-end", "end":
				off = ln.cross - it.cross - it.cStart - it.cEnd
			}
			crossStart := crossPos + it.cStart + off

			c := it.b
			if row {
				c.x, c.y, c.w, c.h = ox+mainStart, oy+crossStart, it.main, it.cross
			} else {
				c.x, c.y, c.w, c.h = ox+crossStart, oy+mainStart, it.cross, it.main
			}
			if c.st.position == "relative" {
				c.offsetRelative(innerW, innerH)
			}
			c.place()

			pos = mainStart + it.main + it.mEnd + gap + between
			if it.autoEnd {
				pos += autoShare
			}
		}
		crossPos += ln.cross + crossGap
	}

	for _, c := range b.children {
		if c.absolute() {
			b.placeAbsolute(c)
		}
	}
}

func (b *box) offsetRelative(cw, ch float64) {
	if v, ok := b.st.left.resolve(cw); ok {
		b.x += v
	} else if v, ok := b.st.right.resolve(cw); ok {
		b.x -= v
	}
	if v, ok := b.st.top.resolve(ch); ok {
		b.y += v
	} else if v, ok := b.st.bottom.resolve(ch); ok {
		b.y -= v
	}
}

// placeAbsolute positions c against the padding box of b.
func (b *box) placeAbsolute(c *box) {
	bw := b.st.borderWidth
	px, py := b.x+bw, b.y+bw
	pw, ph := max(b.w-2*bw, 0), max(b.h-2*bw, 0)
	mt, mr, mb, ml := c.margin(pw)
	left, hasL := c.st.left.resolve(pw)
	right, hasR := c.st.right.resolve(pw)
	top, hasT := c.st.top.resolve(ph)
	bottom, hasB := c.st.bottom.resolve(ph)

	w, ok := c.st.width.resolve(pw)
	if !ok {
		if hasL && hasR {
			w = pw - left - right - ml - mr
		} else {
			w = c.prefWidth(shrinkAvail(pw, ml+mr))
		}
	}
	w = c.clampW(w, pw)
	h, ok := c.st.height.resolve(ph)
	if !ok {
		if hasT && hasB {
			h = ph - top - bottom - mt - mb
		} else {
			h = c.contentHeight(w)
		}
	}
	h = c.clampH(h, ph, pw)

	pt, _, _, pl := b.st.padding.resolve(b.w)
	switch {
	case hasL:
		c.x = px + left + ml
	case hasR:
		c.x = px + pw - right - mr - w
	default:
		c.x = px + pl + ml
	}
	switch {
	case hasT:
		c.y = py + top + mt
	case hasB:
		c.y = py + ph - bottom - mb - h
	default:
		c.y = py + pt + mt
	}
	c.w, c.h = w, h
	c.place()
}
