package store

import "github.com/talgya/cityscape/internal/city"

// CatalogEntry is a named building a player can place directly.
type CatalogEntry struct {
	Name  string    `json:"name"`
	Spec  city.Spec `json:"-"`
	Price int       `json:"price"`
}

// Catalog lists the named buildings, keyed by name.
var Catalog = map[string]CatalogEntry{
	"house":      {Name: "house", Spec: city.Spec{Zone: city.ZoneResidential, Size: city.SizeSmall}, Price: 200},
	"apartment":  {Name: "apartment", Spec: city.Spec{Zone: city.ZoneResidential, Size: city.SizeMedium}, Price: 350},
	"villa":      {Name: "villa", Spec: city.Spec{Zone: city.ZoneResidential, Size: city.SizeLarge}, Price: 500},
	"shop":       {Name: "shop", Spec: city.Spec{Zone: city.ZoneCommercial, Size: city.SizeSmall}, Price: 300},
	"office":     {Name: "office", Spec: city.Spec{Zone: city.ZoneCommercial, Size: city.SizeMedium}, Price: 450},
	"mall":       {Name: "mall", Spec: city.Spec{Zone: city.ZoneCommercial, Size: city.SizeLarge}, Price: 800},
	"factory":    {Name: "factory", Spec: city.Spec{Zone: city.ZoneIndustrial, Size: city.SizeLarge}, Price: 600},
	"warehouse":  {Name: "warehouse", Spec: city.Spec{Zone: city.ZoneIndustrial, Size: city.SizeMedium}, Price: 400},
	"powerplant": {Name: "powerplant", Spec: city.Spec{Service: city.ServicePowerPlant}, Price: 5000},
	"hospital":   {Name: "hospital", Spec: city.Spec{Service: city.ServiceHospital}, Price: 3000},
	"school":     {Name: "school", Spec: city.Spec{Service: city.ServiceSchool}, Price: 2000},
	"police":     {Name: "police", Spec: city.Spec{Service: city.ServicePolice}, Price: 500},
	"park":       {Name: "park", Spec: city.Spec{Service: city.ServicePark}, Price: 500},
}

// InfrastructurePrice is the cost of one tile of each kind.
var InfrastructurePrice = map[city.InfraKind]int{
	city.InfraRoad:  10,
	city.InfraPower: 15,
	city.InfraWater: 15,
}
