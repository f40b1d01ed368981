package functions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/m2tx/benchagent/internal/tools"
)

func CreateCalculatorFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "calculator",
		Description: "Performs calculator operations: add, subtract, multiply, divide, power, sqrt, sin, cos, tan.",
		Parameters: []tools.Parameter{
			{Name: "operation", Type: tools.TypeString, Description: "The operation to perform.", Required: true},
			{Name: "a", Type: tools.TypeNumber, Description: "The first number, or the angle in radians for trigonometric functions.", Required: true},
			{Name: "b", Type: tools.TypeNumber, Description: "The second number, required for add, subtract, multiply, divide and power."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			a, _ := tools.Float(args, "a")
			b, hasB := tools.Float(args, "b")
			return calculate(tools.String(args, "operation"), a, b, hasB)
		},
	}
}

func calculate(op string, a, b float64, hasB bool) (float64, error) {
	binary := map[string]string{
		"add":      "addition",
		"subtract": "subtraction",
		"multiply": "multiplication",
		"divide":   "division",
		"power":    "power operation",
	}
	if name, ok := binary[op]; ok && !hasB {
		return 0, fmt.Errorf("second number is required for %s", name)
	}

	switch op {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return 0, errors.New("cannot divide by zero")
		}
		return a / b, nil
	case "power":
		return math.Pow(a, b), nil
	case "sqrt":
		if a < 0 {
			return 0, errors.New("cannot calculate the square root of a negative number")
		}
		return math.Sqrt(a), nil
	case "sin":
		return math.Sin(a), nil
	case "cos":
		return math.Cos(a), nil
	case "tan":
		return math.Tan(a), nil
	}
	return 0, fmt.Errorf("unsupported operation: %s", op)
}

func CreateReverseTextFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "reverse_text",
		Description: "Reverses an input string to make reversed text readable.",
		Parameters: []tools.Parameter{
			{Name: "input_text", Type: tools.TypeString, Description: "The reversed text string to process.", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			text := tools.String(args, "input_text")
			if text == "" {
				return nil, errors.New("the input text is empty, provide a reversed text string")
			}
			return reverse(text), nil
		},
	}
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

var foodCategories = []struct {
	name  string
	foods []string
}{
	{"fruits", []string{
		"apple", "banana", "orange", "grape", "strawberry", "plum", "peach", "pear",
		"cherry", "blueberry", "raspberry", "pineapple", "mango", "kiwi", "lemon",
		"lime", "watermelon", "cantaloupe", "avocado", "tomato", "cucumber", "bell pepper",
		"eggplant", "okra", "zucchini", "pumpkin", "olive",
	}},
	{"vegetables", []string{
		"carrot", "broccoli", "spinach", "lettuce", "celery", "fresh basil", "sweet potato",
		"potato", "onion", "garlic", "cabbage", "kale", "cauliflower", "asparagus", "radish",
		"turnip", "beet", "artichoke", "brussels sprouts", "peas", "mushroom", "sweet potatoes",
	}},
	{"grains", []string{
		"rice", "wheat", "oats", "barley", "quinoa", "corn", "rye", "millet", "sorghum",
		"buckwheat", "flour",
	}},
	{"nuts", []string{
		"almond", "walnut", "cashew", "peanut", "hazelnut", "pecan", "pistachio", "macadamia",
		"brazil nut", "chestnut", "acorn",
	}},
	{"legumes", []string{
		"lentil", "chickpea", "bean", "pea", "soybean", "black bean", "kidney bean", "pinto bean",
		"navy bean", "lima bean", "green beans",
	}},
	{"other", []string{
		"milk", "eggs", "coffee", "oreos", "allspice", "sugar", "salt", "honey", "maple syrup",
		"vinegar", "oil", "butter", "cheese", "yogurt", "cream", "meat", "fish", "poultry",
	}},
}

// classifyFoods groups foods by botanical category, keeping input order
// within each category. Unlisted foods go to "unknown".
func classifyFoods(foods []string) string {
	fold := cases.Fold()
	title := cases.Title(language.English)

	index := make(map[string]string)
	for _, c := range foodCategories {
		for _, f := range c.foods {
			index[fold.String(f)] = c.name
		}
	}

	grouped := make(map[string][]string)
	for _, food := range foods {
		category, ok := index[fold.String(strings.TrimSpace(food))]
		if !ok {
			category = "unknown"
		}
		grouped[category] = append(grouped[category], food)
	}

	lines := []string{"Food classification:"}
	for _, c := range foodCategories {
		if items := grouped[c.name]; len(items) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", title.String(c.name), strings.Join(items, ", ")))
		}
	}
	if items := grouped["unknown"]; len(items) > 0 {
		lines = append(lines, fmt.Sprintf("%s: %s", title.String("unknown"), strings.Join(items, ", ")))
	}
	return strings.Join(lines, "\n")
}

func CreateClassifyFoodsFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "classify_foods",
		Description: "Classifies a list of foods into botanical categories: fruits, vegetables, grains, nuts, legumes and other.",
		Parameters: []tools.Parameter{
			{Name: "food_list", Type: tools.TypeArray, Items: tools.TypeString, Description: "A list of foods to classify.", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			foods := tools.Strings(args, "food_list")
			if len(foods) == 0 {
				return nil, errors.New("food_list is empty")
			}
			return classifyFoods(foods), nil
		},
	}
}
