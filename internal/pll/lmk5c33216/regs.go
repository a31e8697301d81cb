package lmk5c33216

const (
	regPLL1NDiv uint16 = 0x0100
	regPLL1Num  uint16 = 0x0104
	regPLL1Den  uint16 = 0x0108
	regPLL1Mode uint16 = 0x010C

	regPLL2NDiv uint16 = 0x0200
	regPLL2Num  uint16 = 0x0204
	regPLL2Den  uint16 = 0x0208
	regPD       uint16 = 0x020C

	regPortBase uint16 = 0x0300
	portStride  uint16 = 0x08
)

func regPortDiv(port int) uint16 { return regPortBase + uint16(port)*portStride }
func regPortMux(port int) uint16 { return regPortBase + uint16(port)*portStride + 0x4 }
