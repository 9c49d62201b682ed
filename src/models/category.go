package models

import "regexp"

// Category is the internal transaction category taxonomy.
type Category string

const (
	CategoryIncomeSalary     Category = "income_salary"
	CategoryIncomeInvestment Category = "income_investment"
	CategoryIncomeTransfer   Category = "income_transfer"
	CategoryIncomeOther      Category = "income_other"

	CategoryHousingRent        Category = "housing_rent"
	CategoryHousingMortgage    Category = "housing_mortgage"
	CategoryHousingUtilities   Category = "housing_utilities"
	CategoryHousingMaintenance Category = "housing_maintenance"

	CategoryTransportGas       Category = "transport_gas"
	CategoryTransportParking   Category = "transport_parking"
	CategoryTransportPublic    Category = "transport_public"
	CategoryTransportRideshare Category = "transport_rideshare"

	CategoryFoodGroceries   Category = "food_groceries"
	CategoryFoodRestaurants Category = "food_restaurants"
	CategoryFoodCoffee      Category = "food_coffee"

	CategoryShoppingClothing    Category = "shopping_clothing"
	CategoryShoppingElectronics Category = "shopping_electronics"
	CategoryShoppingGeneral     Category = "shopping_general"

	CategoryEntertainmentStreaming Category = "entertainment_streaming"
	CategoryEntertainmentGames     Category = "entertainment_games"
	CategoryEntertainmentOther     Category = "entertainment_other"

	CategoryHealthMedical  Category = "health_medical"
	CategoryHealthPharmacy Category = "health_pharmacy"
	CategoryHealthFitness  Category = "health_fitness"

	CategoryFinancialFees       Category = "financial_fees"
	CategoryFinancialInterest   Category = "financial_interest"
	CategoryFinancialInvestment Category = "financial_investment"
	CategoryFinancialTransfer   Category = "financial_transfer"

	CategorySubscription Category = "subscription_membership"

	CategoryTravel        Category = "travel"
	CategoryEducation     Category = "education"
	CategoryCharity       Category = "charity"
	CategoryTaxes         Category = "taxes"
	CategoryInsurance     Category = "insurance"
	CategoryPet           Category = "pet"
	CategoryUncategorized Category = "uncategorized"
)

// AllCategories lists every category the engine can assign, in display order.
var AllCategories = []Category{
	CategoryIncomeSalary, CategoryIncomeInvestment, CategoryIncomeTransfer, CategoryIncomeOther,
	CategoryHousingRent, CategoryHousingMortgage, CategoryHousingUtilities, CategoryHousingMaintenance,
	CategoryTransportGas, CategoryTransportParking, CategoryTransportPublic, CategoryTransportRideshare,
	CategoryFoodGroceries, CategoryFoodRestaurants, CategoryFoodCoffee,
	CategoryShoppingClothing, CategoryShoppingElectronics, CategoryShoppingGeneral,
	CategoryEntertainmentStreaming, CategoryEntertainmentGames, CategoryEntertainmentOther,
	CategoryHealthMedical, CategoryHealthPharmacy, CategoryHealthFitness,
	CategoryFinancialFees, CategoryFinancialInterest, CategoryFinancialInvestment, CategoryFinancialTransfer,
	CategorySubscription,
	CategoryTravel, CategoryEducation, CategoryCharity, CategoryTaxes, CategoryInsurance, CategoryPet,
	CategoryUncategorized,
}

// ValidCategory reports whether c is part of the taxonomy.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// merchantPattern binds one category to its merchant regexes. Slices keep
// evaluation order deterministic, unlike map iteration.
type merchantPattern struct {
	Category Category
	Patterns []*regexp.Regexp
}

// CategoryConfig is the immutable categorization configuration, built once at
// startup and passed explicitly into the categorizer.
type CategoryConfig struct {
	providerComposite map[string]Category
	providerSimple    map[string]Category
	merchantPatterns  []merchantPattern
	paypalPrefix      *regexp.Regexp
}

// NewCategoryConfig builds the static provider mapping and merchant
// heuristics tables.
func NewCategoryConfig() *CategoryConfig {
	cfg := &CategoryConfig{
		providerComposite: map[string]Category{
			"INCOME_DIVIDENDS":                         CategoryIncomeInvestment,
			"INCOME_INTEREST_EARNED":                   CategoryIncomeInvestment,
			"INCOME_WAGES":                             CategoryIncomeSalary,
			"INCOME_OTHER_INCOME":                      CategoryIncomeOther,
			"TRANSFER_IN_DEPOSIT":                      CategoryIncomeTransfer,
			"FOOD_AND_DRINK_GROCERIES":                 CategoryFoodGroceries,
			"FOOD_AND_DRINK_RESTAURANT":                CategoryFoodRestaurants,
			"FOOD_AND_DRINK_COFFEE":                    CategoryFoodCoffee,
			"FOOD_AND_DRINK_FAST_FOOD":                 CategoryFoodRestaurants,
			"TRANSPORTATION_GAS":                       CategoryTransportGas,
			"TRANSPORTATION_PARKING":                   CategoryTransportParking,
			"TRANSPORTATION_PUBLIC_TRANSIT":            CategoryTransportPublic,
			"TRANSPORTATION_TAXIS_AND_RIDE_SHARES":     CategoryTransportRideshare,
			"SHOPS_CLOTHING_AND_ACCESSORIES":           CategoryShoppingClothing,
			"SHOPS_ELECTRONICS":                        CategoryShoppingElectronics,
			"SHOPS_SUPERMARKETS_AND_GROCERIES":         CategoryFoodGroceries,
			"SHOPS_GENERAL_MERCHANDISE":                CategoryShoppingGeneral,
			"ENTERTAINMENT_MUSIC_AND_AUDIO":            CategoryEntertainmentStreaming,
			"ENTERTAINMENT_TV_AND_MOVIES":              CategoryEntertainmentStreaming,
			"ENTERTAINMENT_GAMES":                      CategoryEntertainmentGames,
			"HEALTHCARE_MEDICAL_SERVICES":              CategoryHealthMedical,
			"HEALTHCARE_PHARMACIES_AND_SUPPLEMENTS":    CategoryHealthPharmacy,
			"PERSONAL_CARE_GYMS_AND_FITNESS_CENTERS":   CategoryHealthFitness,
			"RENT_AND_UTILITIES_RENT":                  CategoryHousingRent,
			"RENT_AND_UTILITIES_GAS_AND_ELECTRICITY":   CategoryHousingUtilities,
			"RENT_AND_UTILITIES_WATER":                 CategoryHousingUtilities,
			"RENT_AND_UTILITIES_INTERNET_AND_CABLE":    CategoryHousingUtilities,
			"HOME_IMPROVEMENT_REPAIR_AND_MAINTENANCE":  CategoryHousingMaintenance,
			"BANK_FEES_ATM_FEES":                       CategoryFinancialFees,
			"BANK_FEES_OVERDRAFT":                      CategoryFinancialFees,
			"BANK_FEES_INTEREST_CHARGE":                CategoryFinancialInterest,
			"TRANSFER_OUT_INVESTMENT":                  CategoryFinancialInvestment,
			"TRANSFER_INTERNAL_ACCOUNT_TRANSFER":       CategoryFinancialTransfer,
			"TRAVEL_FLIGHTS":                           CategoryTravel,
			"TRAVEL_LODGING":                           CategoryTravel,
			"TRAVEL_CAR_RENTAL":                        CategoryTravel,
			"GOVERNMENT_AND_NON_PROFIT_TAX_PAYMENT":    CategoryTaxes,
			"GOVERNMENT_AND_NON_PROFIT_DONATIONS":      CategoryCharity,
			"LOAN_PAYMENTS_MORTGAGE_PAYMENT":           CategoryHousingMortgage,
			"LOAN_PAYMENTS_CAR_PAYMENT":                CategoryFinancialTransfer,
		},
		// Some providers send a single lowercase token instead of the
		// composite key above.
		providerSimple: map[string]Category{
			"accommodation":  CategoryTravel,
			"bar":            CategoryFoodRestaurants,
			"charity":        CategoryCharity,
			"clothing":       CategoryShoppingClothing,
			"dining":         CategoryFoodRestaurants,
			"education":      CategoryEducation,
			"electronics":    CategoryShoppingElectronics,
			"entertainment":  CategoryEntertainmentOther,
			"fuel":           CategoryTransportGas,
			"gas":            CategoryTransportGas,
			"groceries":      CategoryFoodGroceries,
			"health":         CategoryHealthMedical,
			"home":           CategoryHousingMaintenance,
			"income":         CategoryIncomeOther,
			"insurance":      CategoryInsurance,
			"investment":     CategoryFinancialInvestment,
			"loan":           CategoryFinancialTransfer,
			"phone":          CategoryHousingUtilities,
			"shopping":       CategoryShoppingGeneral,
			"software":       CategorySubscription,
			"sport":          CategoryHealthFitness,
			"tax":            CategoryTaxes,
			"transport":      CategoryTransportPublic,
			"transportation": CategoryTransportPublic,
			"travel":         CategoryTravel,
			"utilities":      CategoryHousingUtilities,
		},
		paypalPrefix: regexp.MustCompile(`(?i)^(?:paypal ?\*|pp ?\*)\s*`),
	}

	add := func(cat Category, patterns ...string) {
		mp := merchantPattern{Category: cat}
		for _, p := range patterns {
			mp.Patterns = append(mp.Patterns, regexp.MustCompile("(?i)"+p))
		}
		cfg.merchantPatterns = append(cfg.merchantPatterns, mp)
	}

	add(CategoryFoodGroceries,
		`kroger`, `safeway`, `whole foods`, `trader joe`, `aldi`, `costco`,
		`publix`, `h-e-b`, `albertsons`, `wegmans`, `grocery`, `instacart`)
	add(CategoryFoodCoffee,
		`starbucks`, `dunkin`, `peet's coffee`, `dutch bros`, `tim horton`)
	add(CategoryFoodRestaurants,
		`mcdonald`, `chipotle`, `panera`, `chick-fil-a`, `taco bell`, `wendy`,
		`pizza`, `restaurant`, `grill`, `cafe`, `diner`, `bistro`, `taqueria`,
		`sushi`, `ramen`, `doordash`, `uber eats`, `grubhub`, `tst\*`, `sq \*`)
	add(CategoryTransportGas,
		`shell`, `chevron`, `exxon`, `\bmobil\b`, `texaco`, `speedway`,
		`gas station`, `fuel`, `petroleum`)
	add(CategoryTransportRideshare, `uber`, `lyft`)
	add(CategoryTransportParking, `parking`, `spothero`, `parkwhiz`)
	add(CategoryEntertainmentGames,
		`steam`, `blizzard`, `xbox`, `playstation`, `nintendo`, `epic games`, `roblox`)
	add(CategorySubscription,
		`adobe`, `microsoft`, `icloud`, `dropbox`, `github`, `openai`,
		`membership fee`, `annual fee`, `amazon prime`,
		`netflix`, `hulu`, `disney\+`, `disney plus`, `hbo max`, `spotify`,
		`apple music`, `youtube`, `paramount\+`, `peacock`, `audible`, `crunchyroll`)
	add(CategoryHealthFitness,
		`planet fitness`, `la fitness`, `anytime fitness`, `equinox`,
		`crossfit`, `orangetheory`, `peloton`, `ymca`, `gym`)
	add(CategoryHousingUtilities,
		`electric`, `gas company`, `water bill`, `at&t`, `verizon`, `t-mobile`,
		`comcast`, `xfinity`, `spectrum`, `internet`, `utility`, `broadband`)
	add(CategoryShoppingElectronics,
		`best buy`, `apple store`, `apple\.com`, `micro center`, `newegg`)
	add(CategoryShoppingClothing,
		`nordstrom`, `macy's`, `old navy`, `h&m`, `zara`, `uniqlo`, `nike`,
		`adidas`, `lululemon`, `tj maxx`, `marshalls`)
	add(CategoryShoppingGeneral,
		`amazon`, `amzn`, `walmart`, `target`, `etsy`, `ebay`, `wayfair`,
		`ikea`, `dollar tree`, `dollar general`, `office depot`, `staples`)
	add(CategoryHealthPharmacy, `cvs`, `walgreens`, `rite aid`, `pharmacy`)
	add(CategoryHealthMedical,
		`dental`, `dentist`, `doctor`, `dr\.`, `medical`, `hospital`, `clinic`,
		`urgent care`, `physician`, `labcorp`, `quest diag`, `radiology`)
	add(CategoryInsurance,
		`geico`, `state farm`, `allstate`, `progressive`, `liberty mutual`, `insurance`)
	add(CategoryFinancialTransfer,
		`^venmo\s`, `zelle`, `cash app`, `transfer`, `wire `, `autopay payment`,
		`payment thank you`, `credit card payment`, `online payment`, `epayment`,
		`statement credit`, `card payment`)
	add(CategoryFinancialInvestment,
		`fidelity`, `schwab`, `vanguard`, `robinhood`, `wealthfront`, `betterment`)
	add(CategoryHousingMaintenance,
		`lowes`, `home depot`, `menards`, `ace hardware`, `harbor freight`)
	add(CategoryTravel,
		`united air`, `american air`, `delta air`, `southwest`, `jetblue`,
		`marriott`, `hilton`, `hyatt`, `airbnb`, `vrbo`, `booking\.com`,
		`expedia`, `hertz`, `enterprise`, `avis`, `toll`, `ezpass`)
	add(CategoryCharity,
		`church`, `temple`, `synagogue`, `mosque`, `salvation army`, `red cross`,
		`united way`, `goodwill`, `charity`, `donation`, `tithe`)
	add(CategoryPet,
		`petco`, `chewy`, `pet supplies`, `pet store`, `veterinar`, `animal clini`)

	return cfg
}

// LookupProviderCategory maps a provider-supplied category hint to an
// internal category. Composite keys ("FOOD_AND_DRINK_COFFEE") are tried
// first, then single-token hints ("dining").
func (c *CategoryConfig) LookupProviderCategory(compositeKey, simpleToken string) (Category, bool) {
	if compositeKey != "" {
		if cat, ok := c.providerComposite[compositeKey]; ok {
			return cat, true
		}
	}
	if simpleToken != "" {
		if cat, ok := c.providerSimple[simpleToken]; ok {
			return cat, true
		}
	}
	return "", false
}

// MatchMerchant runs the static merchant heuristics over the search text and
// returns the first matching category.
func (c *CategoryConfig) MatchMerchant(searchText string) (Category, bool) {
	for _, mp := range c.merchantPatterns {
		for _, re := range mp.Patterns {
			if re.MatchString(searchText) {
				return mp.Category, true
			}
		}
	}
	return "", false
}

// StripPayPalPrefix extracts the underlying merchant from names like
// "PAYPAL *CHEWY" or "PP*GITHUB". Returns "" when there is no prefix.
func (c *CategoryConfig) StripPayPalPrefix(name string) string {
	if loc := c.paypalPrefix.FindStringIndex(name); loc != nil {
		return name[loc[1]:]
	}
	return ""
}
