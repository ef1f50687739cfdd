package tray

import "encoding/binary"

const iconSize = 16

// Icon returns a 16x16 32-bit ICO of a keyboard: a dark body with a grid
// of light keys and a space bar.
func Icon() []byte {
	const (
		pixels  = iconSize * iconSize * 4
		mask    = iconSize * 4 // 1 bpp, rows padded to 32 bits
		dibSize = 40
		imgSize = dibSize + pixels + mask
		offset  = 6 + 16
	)
	buf := make([]byte, offset+imgSize)

	// ICONDIR
	binary.LittleEndian.PutUint16(buf[2:], 1)
	binary.LittleEndian.PutUint16(buf[4:], 1)

	// ICONDIRENTRY
	e := buf[6:]
	e[0], e[1] = iconSize, iconSize
	binary.LittleEndian.PutUint16(e[4:], 1)
	binary.LittleEndian.PutUint16(e[6:], 32)
	binary.LittleEndian.PutUint32(e[8:], imgSize)
	binary.LittleEndian.PutUint32(e[12:], offset)

	// BITMAPINFOHEADER, height doubled for the AND mask
	d := buf[offset:]
	binary.LittleEndian.PutUint32(d[0:], dibSize)
	binary.LittleEndian.PutUint32(d[4:], iconSize)
	binary.LittleEndian.PutUint32(d[8:], iconSize*2)
	binary.LittleEndian.PutUint16(d[12:], 1)
	binary.LittleEndian.PutUint16(d[14:], 32)
	binary.LittleEndian.PutUint32(d[20:], pixels+mask)

	px := d[dibSize:]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			c := iconPixel(x, y)
			// rows are stored bottom-up, BGRA
			i := ((iconSize-1-y)*iconSize + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = c[2], c[1], c[0], c[3]
		}
	}
	return buf
}

// iconPixel returns RGBA for (x, y) with y growing downwards.
func iconPixel(x, y int) [4]byte {
	transparent := [4]byte{}
	body := [4]byte{0x30, 0x34, 0x3c, 0xff}
	key := [4]byte{0xe8, 0xea, 0xee, 0xff}

	if y < 3 || y > 12 || x < 0 || x > 15 {
		return transparent
	}
	// rounded corners
	if (y == 3 || y == 12) && (x == 0 || x == 15) {
		return transparent
	}
	switch {
	case y == 11 && x >= 4 && x <= 11:
		return key
	case (y == 5 || y == 7 || y == 9) && x >= 2 && x <= 13 && x%2 == 0:
		return key
	}
	return body
}
