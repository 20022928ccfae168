package v4l2

// Sizes reported for devices that only describe a stepwise range.
var commonResolutions = []Resolution{
	{320, 240},  // QVGA
	{640, 480},  // VGA
	{800, 600},  // SVGA
	{1024, 768}, // XGA
	{1280, 720}, // HD
	{1280, 960},
	{1280, 1024}, // SXGA
	{1920, 1080}, // Full HD
	{1920, 1200}, // WUXGA
	{2560, 1440}, // QHD
	{3840, 2160}, // 4K UHD
}

var commonFramerates = []Framerate{
	{1, 60},
	{1, 50},
	{1, 30},
	{1, 25},
	{1, 20},
	{1, 15},
	{1, 10},
	{1, 5},
}
