package loader

// AuxvType is a single auxiliary-vector entry type.
// See https://man7.org/linux/man-pages/man3/getauxval.3.html
type AuxvType uint32

const (
	AT_NULL     AuxvType = 0
	AT_IGNORE   AuxvType = 1
	AT_EXECFD   AuxvType = 2
	AT_PHDR     AuxvType = 3
	AT_PHENT    AuxvType = 4
	AT_PHNUM    AuxvType = 5
	AT_PAGESZ   AuxvType = 6
	AT_BASE     AuxvType = 7
	AT_FLAGS    AuxvType = 8
	AT_ENTRY    AuxvType = 9
	AT_NOTELF   AuxvType = 10
	AT_UID      AuxvType = 11
	AT_EUID     AuxvType = 12
	AT_GID      AuxvType = 13
	AT_EGID     AuxvType = 14
	AT_PLATFORM AuxvType = 15
	AT_HWCAP    AuxvType = 16
	AT_CLKTCK   AuxvType = 17
	AT_SECURE   AuxvType = 23
	AT_BASE_PLATFORM AuxvType = 24
	AT_RANDOM   AuxvType = 25
	AT_HWCAP2   AuxvType = 26
	AT_EXECFN   AuxvType = 31
)

// hwcapMIPS32BE is AT_HWCAP's value for a 32-bit big-endian target.
//
// This carries a known, acknowledged bug from the original source: the
// big-endian 32-bit literal (0xd7b81f) is not actually the big-endian
// byteswap of the little-endian/64-bit values the original uses for its
// other targets (0x078bfbfd / 0x1fb8d7)
// — the 64-bit value has an implied leading zero byte (0x001fb8d7) that the
// big-endian swap doesn't account for. Per this port's design notes, the
// value is kept exactly as the original computed it rather than "fixed",
// since verifiers must agree on byte-for-byte auxv contents.
const hwcapMIPS32BE uint32 = 0xd7b81f
