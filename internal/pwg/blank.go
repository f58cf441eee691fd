package pwg

// BlankPageData synthesizes an all-white page using PWG-Raster's
// row/column run-length scheme, grounded in lib_pwg.c's
// _generate_blank_data: a row-repeat command byte (0xFF for a full
// 256-row repeat, or (height%256)-1 for the trailing remainder)
// followed, per row, by column-repeat command bytes (0x7F for a full
// 128-column repeat, or (width%128)-1 for the remainder) each followed
// by the repeated white pixel value: 2 bytes/chunk for monochrome, 4
// bytes/chunk for color.
func BlankPageData(width, height int, monochrome bool) []byte {
	if width == 0 || height == 0 {
		return nil
	}

	rowsFull := height / 256
	columnsFull := width / 128
	rowFraction := 0
	if height%256 != 0 {
		rowFraction = 1
	}
	columnFraction := 0
	if width%128 != 0 {
		columnFraction = 1
	}

	pixelBytes := 4
	if monochrome {
		pixelBytes = 2
	}
	columnDataSize := 1 + (columnsFull+columnFraction)*pixelBytes
	bufferSize := (rowsFull + rowFraction) * columnDataSize

	buf := make([]byte, 0, bufferSize)
	for y := 0; y < rowsFull+rowFraction; y++ {
		if y < rowsFull {
			buf = append(buf, 0xFF)
		} else {
			buf = append(buf, byte((height%256)-1))
		}

		for x := 0; x < columnsFull+columnFraction; x++ {
			if x < columnsFull {
				buf = append(buf, 0x7F)
			} else {
				buf = append(buf, byte((width%128)-1))
			}

			buf = append(buf, 0xFF)
			if !monochrome {
				buf = append(buf, 0xFF, 0xFF)
			}
		}
	}
	return buf
}
