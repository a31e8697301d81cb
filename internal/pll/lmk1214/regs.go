package lmk1214

const (
	regNDiv uint16 = 0x0100
	regNum  uint16 = 0x0104
	regDen  uint16 = 0x0108

	regPortBase uint16 = 0x0200
	portStride  uint16 = 0x08
)

func regPortDiv(port int) uint16 { return regPortBase + uint16(port)*portStride }
func regPortMux(port int) uint16 { return regPortBase + uint16(port)*portStride + 0x4 }
