package e2e

import "fmt"

// Themes give each synthetic cluster a recognizable subject so lookup and
// text assertions read like real district records.
var clusterThemes = []string{
	"coastal elementary",
	"valley unified",
	"mountain joint union",
	"urban high school",
	"desert charter",
	"rural community day",
	"suburban k-8",
	"county office program",
}

var counties = []string{
	"San Mateo", "Fresno", "Sierra", "Los Angeles",
	"Imperial", "Modoc", "Contra Costa", "Sacramento",
}

// DistrictName returns a deterministic display name for the i-th record of
// cluster k.
func DistrictName(k, i int) string {
	theme := clusterThemes[k%len(clusterThemes)]
	return fmt.Sprintf("%s district %02d-%03d", theme, k, i)
}

// DistrictText returns the description text the offline pipeline would have
// embedded for the record.
func DistrictText(k, i int) string {
	theme := clusterThemes[k%len(clusterThemes)]
	county := counties[k%len(counties)]
	return fmt.Sprintf("The %s district %02d-%03d serves students in %s County with a focus on %s programs.",
		theme, k, i, county, theme)
}
