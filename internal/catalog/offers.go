// Package catalog maps the numeric offer codes stored on Dolibarr order lines to the
// offer labels shown in the ADV order list.
package catalog

// PendingQualification is the label used when an order carries no known offer code.
const PendingQualification = "À qualifier"

var offers = map[int]string{
	1:  "BUSINESS BOX FIXE 249 AE",
	2:  "TDLTE",
	3:  "FIBRE 20M ESE",
	4:  "FIBRE 50M ESE",
	5:  "FIBRE 100M ESE",
	6:  "FIBRE 200M ESE",
	7:  "FF Orange Pro 6H+6Go ST",
	8:  "Forfait Orange Pro 15H+15Go ST",
	10: "Forfait illimité national + ST",
	11: "FF illimité pro national ST",
	12: "FF illimité Pro Silver ST",
	13: "FF illimité Pro Gold ST",
	14: "Wifi Pro Pack Connect",
	15: "Wifi Pro Connect +",
	16: "Smart-fax limité 29dh",
	17: "BUSINESS BOX 4G 249",
	18: "BUSINESS BOX 4G + 349",
	19: "BUSINESS BOX FIXE 249 SE",
	20: "FF Orange Pro 25H+25Go ST",
	21: "Smart-fax limité 99dh",
	23: "SIM Only BBOX FIXE 249",
	24: "SIM ONLY – BUSINESS BOX 4G+",
	25: "SIM ONLY – BUSINESS BOX 4G Premium",
	26: "Pack Forfait Orange Pro 6H",
	27: "Pack Forfait Pro Connect 15",
	28: "BUSINESS BOX FIXE+ 349 AE",
	29: "SIM Only BBOX FIXE+ 349",
	30: "ADSL",
	31: "FF illimité Pro Premium ST",
	32: "Forfait Pro Connect 15 ST",
	33: "FORFAIT PRO CONNECT 30 ST",
	34: "Forfait Pro CONNECT 70Go ST",
	35: "Forfait Pro Connect 40 ST",
	40: "Partage FIBRE 20M ESE",
	41: "Partage FIBRE 50M ESE",
	42: "Partage FIBRE 100M ESE",
	43: "Partage FIBRE 200M ESE",
	50: "BUSINESS BOX 5G",
	60: "Forfait Orange Pro 40H ST",
	61: "Forfait Orange Pro 50H ST",
	62: "Forfait Pro CONNECT 100Go ST",
	63: "Internet Mobile Pro 35 Go",
	64: "Internet Mobile Pro 80 Go",
	65: "Internet Mobile Pro 100 Go",
	66: "Internet Mobile Pro 150 Go",
}

func lookup(code int) (string, bool) {
	label, ok := offers[code]
	return label, ok
}

// Label resolves an optional offer code, falling back to PendingQualification.
func Label(code *int) string {
	if code == nil {
		return PendingQualification
	}
	if label, ok := lookup(*code); ok {
		return label
	}
	return PendingQualification
}
