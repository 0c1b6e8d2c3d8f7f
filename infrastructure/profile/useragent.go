package profile

import "fmt"

// edgeVersion pairs an Edge release with the Chromium major it ships.
type edgeVersion struct {
	Edge   string
	Chrome int
}

var edgeVersions = []edgeVersion{
	{Edge: "128.0.2739.79", Chrome: 128},
	{Edge: "129.0.2792.89", Chrome: 129},
	{Edge: "130.0.2849.68", Chrome: 130},
	{Edge: "131.0.2903.86", Chrome: 131},
	{Edge: "132.0.2957.140", Chrome: 132},
}

// User agents use the reduced Chrome version and, on Android, the fixed "K" device model.
func desktopUserAgent(v edgeVersion) string {
	return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36 Edg/%s", v.Chrome, v.Edge)
}

func mobileUserAgent(v edgeVersion) string {
	return fmt.Sprintf("Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/%d.0.0.0 Mobile Safari/537.36 EdgA/%s", v.Chrome, v.Edge)
}
