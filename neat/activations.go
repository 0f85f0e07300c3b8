package neat

import (
	"fmt"
	"math"
)

// ActivationFunc is a node transfer function.
type ActivationFunc func(x float64) float64

// activations maps config names to transfer functions. Names follow the
// neat-python vocabulary so existing config files carry over.
var activations = map[string]ActivationFunc{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"sin":      Sine,
	"gauss":    Gaussian,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"abs":      Absolute,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := activations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Sigmoid is the steepened logistic function NEAT traditionally uses
// (k = 4.9, from the original paper's parameter settings).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-4.9*clamp(x, -12.0, 12.0)))
}

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Sine activation function.
func Sine(x float64) float64 {
	return math.Sin(x)
}

// Gaussian activation function.
func Gaussian(x float64) float64 {
	return math.Exp(-x * x / 2.0)
}

// ReLU (rectified linear unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped activation function, output limited to [-1, 1].
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// Inv activation function (1/x, 0 at x = 0 as in neat-python).
func Inv(x float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	return 1.0 / x
}

// Log activation function; inputs below epsilon are floored first.
func Log(x float64) float64 {
	return math.Log(math.Max(1e-9, x))
}

// Exp activation function with input clamped against overflow.
func Exp(x float64) float64 {
	return math.Exp(clamp(x, -60.0, 60.0))
}

// Absolute value activation function.
func Absolute(x float64) float64 {
	return math.Abs(x)
}

// Hat activation function (triangular pulse centered at 0).
func Hat(x float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

// Square activation function.
func Square(x float64) float64 {
	return x * x
}

// Cube activation function.
func Cube(x float64) float64 {
	return x * x * x
}
