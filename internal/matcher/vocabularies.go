package matcher

// Controlled vocabularies offered by the listing form

var GemTypes = NewVocabulary(
	[]string{
		"Diamond", "Ruby", "Sapphire", "Emerald", "Alexandrite", "Spinel",
		"Tourmaline", "Paraiba Tourmaline", "Garnet", "Tanzanite", "Aquamarine",
		"Morganite", "Topaz", "Opal", "Pearl", "Jade", "Zircon", "Peridot",
		"Amethyst", "Citrine", "Chrysoberyl", "Tsavorite", "Demantoid",
	},
	map[string]string{
		"red corundum":     "Ruby",
		"blue corundum":    "Sapphire",
		"green beryl":      "Emerald",
		"jadeite":          "Jade",
		"nephrite":         "Jade",
		"cats eye":         "Chrysoberyl",
		"tsavorite garnet": "Tsavorite",
		"cuprian elbaite":  "Paraiba Tourmaline",
	},
)

var Colors = NewVocabulary(
	[]string{
		"Red", "Pigeon Blood Red", "Pink", "Orange", "Yellow", "Green",
		"Blue", "Royal Blue", "Cornflower Blue", "Purple", "Violet", "Brown",
		"Black", "White", "Colorless", "Padparadscha", "Multi-color",
	},
	map[string]string{
		"pigeon's blood": "Pigeon Blood Red",
		"pigeons blood":  "Pigeon Blood Red",
		"colourless":     "Colorless",
		"purplish red":   "Red",
		"pinkish orange": "Padparadscha",
		"orangy pink":    "Padparadscha",
		"bi color":       "Multi-color",
		"bicolor":        "Multi-color",
		"parti color":    "Multi-color",
	},
)

var ClarityGrades = NewVocabulary(
	[]string{
		"FL", "IF", "VVS1", "VVS2", "VS1", "VS2", "SI1", "SI2", "I1", "I2", "I3",
		"Eye Clean", "Slightly Included", "Moderately Included", "Heavily Included",
	},
	map[string]string{
		"flawless":            "FL",
		"internally flawless": "IF",
		"vvs 1":               "VVS1",
		"vvs 2":               "VVS2",
		"vs 1":                "VS1",
		"vs 2":                "VS2",
		"si 1":                "SI1",
		"si 2":                "SI2",
		"type i":              "Eye Clean",
		"loupe clean":         "Eye Clean",
	},
)

var Labs = NewVocabulary(
	[]string{
		"GIA", "AGL", "GRS", "Gübelin", "SSEF", "IGI", "AIGS",
		"Lotus Gemology", "GIT", "HRD", "ICA", "CGL",
	},
	map[string]string{
		"gemological institute of america":        "GIA",
		"american gemological laboratories":       "AGL",
		"gemresearch swisslab":                    "GRS",
		"gubelin":                                 "Gübelin",
		"swiss gemmological institute":            "SSEF",
		"international gemological institute":     "IGI",
		"asian institute of gemological sciences": "AIGS",
		"gem and jewelry institute of thailand":   "GIT",
		"central gem laboratory":                  "CGL",
	},
)

var Origins = NewVocabulary(
	[]string{
		"Burma (Myanmar)", "Sri Lanka", "Madagascar", "Thailand", "Cambodia",
		"Kashmir", "Colombia", "Zambia", "Brazil", "Mozambique", "Tanzania",
		"Kenya", "Australia", "Afghanistan", "Pakistan", "Vietnam", "Nigeria",
		"Russia", "Ethiopia", "India", "United States", "Undetermined",
	},
	map[string]string{
		"myanmar":        "Burma (Myanmar)",
		"burma":          "Burma (Myanmar)",
		"mogok":          "Burma (Myanmar)",
		"ceylon":         "Sri Lanka",
		"siam":           "Thailand",
		"usa":            "United States",
		"montana":        "United States",
		"not determined": "Undetermined",
		"unknown":        "Undetermined",
	},
)

var Treatments = NewVocabulary(
	[]string{
		"None", "No Heat", "Heat", "Heat with Residue", "Oil (Minor)",
		"Oil (Moderate)", "Oil (Significant)", "Resin", "Diffusion",
		"Beryllium Diffusion", "Irradiation", "Glass Filling",
	},
	map[string]string{
		"unheated":                            "No Heat",
		"no heat":                             "No Heat",
		"no indications of heating":           "No Heat",
		"no indication of heating":            "No Heat",
		"no indications of thermal treatment": "No Heat",
		"heated":                              "Heat",
		"heat treated":                        "Heat",
		"indications of heating":              "Heat",
		"thermal treatment":                   "Heat",
		"heat with minor residue":             "Heat with Residue",
		"residue":                             "Heat with Residue",
		"minor oil":                           "Oil (Minor)",
		"insignificant oil":                   "Oil (Minor)",
		"moderate oil":                        "Oil (Moderate)",
		"significant oil":                     "Oil (Significant)",
		"lead glass":                          "Glass Filling",
		"glass filled":                        "Glass Filling",
		"be diffusion":                        "Beryllium Diffusion",
		"irradiated":                          "Irradiation",
		"no treatment":                        "None",
		"untreated":                           "None",
	},
)

var Shapes = NewVocabulary(
	[]string{
		"Round", "Oval", "Cushion", "Emerald", "Pear", "Marquise", "Heart",
		"Princess", "Radiant", "Asscher", "Trillion", "Cabochon", "Baguette",
		"Octagonal", "Rectangular", "Square",
	},
	map[string]string{
		"octagon":    "Octagonal",
		"rectangle":  "Rectangular",
		"triangle":   "Trillion",
		"pear shape": "Pear",
	},
)

var Cuts = NewVocabulary(
	[]string{
		"Brilliant", "Modified Brilliant", "Step", "Mixed", "Cabochon", "Rose", "Faceted",
	},
	map[string]string{
		"step cut":    "Step",
		"mixed cut":   "Mixed",
		"emerald cut": "Step",
	},
)
