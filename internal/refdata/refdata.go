// Package refdata holds the country and subdivision reference tables the
// registry's numeric codes resolve against. The tables are small and fixed;
// they change on the authority's schedule, not ours.
package refdata

// CountryCode is the domestic country marker used on fiscal addresses
// written from registry data.
const CountryCode = "AR"

// provinces maps the registry's numeric subdivision codes to subdivision
// names. Code 0 is the autonomous capital district.
var provinces = map[int]string{
	0:  "Ciudad Autónoma de Buenos Aires",
	1:  "Buenos Aires",
	2:  "Catamarca",
	3:  "Córdoba",
	4:  "Corrientes",
	5:  "Entre Ríos",
	6:  "Jujuy",
	7:  "Mendoza",
	8:  "La Rioja",
	9:  "Salta",
	10: "San Juan",
	11: "San Luis",
	12: "Santa Fe",
	13: "Santiago del Estero",
	14: "Tucumán",
	16: "Chaco",
	17: "Chubut",
	18: "Formosa",
	19: "Misiones",
	20: "Neuquén",
	21: "La Pampa",
	22: "Río Negro",
	23: "Santa Cruz",
	24: "Tierra del Fuego",
}

// Subdivision resolves a registry subdivision code. Unknown codes return
// ok=false; the caller leaves the subdivision blank rather than guessing.
func Subdivision(code int) (string, bool) {
	name, ok := provinces[code]
	return name, ok
}
