package detection

import (
	"strings"
)

// synonyms folds common label variants, plurals and vision-model quirks
// into canonical ingredient names. Keys must already be lower-cased.
var synonyms = map[string]string{
	"tomatoes":          "tomato",
	"cherry tomato":     "tomato",
	"roma tomato":       "tomato",
	"eggs":              "egg",
	"chicken egg":       "egg",
	"onions":            "onion",
	"red onion":         "onion",
	"yellow onion":      "onion",
	"scallion":          "green onion",
	"spring onion":      "green onion",
	"potatoes":          "potato",
	"carrots":           "carrot",
	"bell peppers":      "bell pepper",
	"capsicum":          "bell pepper",
	"chili":             "chili pepper",
	"chilli":            "chili pepper",
	"garlic clove":      "garlic",
	"garlic cloves":     "garlic",
	"mushrooms":         "mushroom",
	"button mushroom":   "mushroom",
	"basil leaves":      "basil",
	"fresh basil":       "basil",
	"cilantro":          "coriander",
	"limes":             "lime",
	"lemons":            "lemon",
	"apples":            "apple",
	"bananas":           "banana",
	"courgette":         "zucchini",
	"aubergine":         "eggplant",
	"beef steak":        "beef",
	"ground beef":       "beef",
	"minced beef":       "beef",
	"chicken breast":    "chicken",
	"chicken thigh":     "chicken",
	"chicken thighs":    "chicken",
	"whole milk":        "milk",
	"skim milk":         "milk",
	"cheddar":           "cheese",
	"mozzarella":        "cheese",
	"parmesan":          "cheese",
	"all-purpose flour": "flour",
	"plain flour":       "flour",
	"wheat flour":       "flour",
	"granulated sugar":  "sugar",
	"caster sugar":      "sugar",
	"noodles":           "noodle",
	"spaghetti":         "pasta",
	"penne":             "pasta",
	"macaroni":          "pasta",
}

// Canonicalize folds a raw detection label into its canonical ingredient
// name: trimmed, lower-cased, whitespace collapsed, synonym folded.
func Canonicalize(label string) string {
	name := strings.ToLower(strings.TrimSpace(label))
	name = strings.Join(strings.Fields(name), " ")
	if canonical, ok := synonyms[name]; ok {
		return canonical
	}
	return name
}
