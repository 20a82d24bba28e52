package ui

// iconBytes is the 16x16 tray icon (PNG).
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x3a, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x16, 0xd0,
	0x88, 0x3a, 0xf1, 0x9f, 0x14, 0x4c, 0x91, 0x66, 0x0c, 0x43, 0xe8, 0x66,
	0x00, 0x08, 0x90, 0x65, 0x00, 0x32, 0x20, 0xc9, 0x00, 0x6c, 0x80, 0x28,
	0x03, 0xf0, 0x01, 0xfa, 0x18, 0x40, 0xb1, 0x17, 0xa8, 0x16, 0x88, 0x54,
	0x8b, 0x46, 0xda, 0xa7, 0x44, 0x8a, 0x33, 0x13, 0x25, 0x00, 0x00, 0xd0,
	0x99, 0xed, 0x30, 0x5c, 0xe7, 0x93, 0x41, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
