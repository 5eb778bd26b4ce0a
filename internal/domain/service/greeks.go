package service

import "math"

// Black-Scholes 欧式期权，浮点实现（数值方法本身就不精确）

const (
	ivInitialSigma = 0.2
	ivMaxIter      = 100
	ivTolerance    = 1e-6
	ivMinSigma     = 1e-4
)

// BSInput 定价输入，T 以年计
type BSInput struct {
	S, K, T, R, Sigma float64
	Call              bool
}

// BSGreeks 原始单位的希腊值：Vega/Rho 为每 1.0 变动，Theta 为每年
type BSGreeks struct {
	Delta, Gamma, Vega, Theta, Rho float64
}

func (in BSInput) d1d2() (float64, float64) {
	sqrtT := math.Sqrt(in.T)
	d1 := (math.Log(in.S/in.K) + (in.R+0.5*in.Sigma*in.Sigma)*in.T) / (in.Sigma * sqrtT)
	return d1, d1 - in.Sigma*sqrtT
}

// BSPrice 理论价格；T<=0 时返回内在价值
func BSPrice(in BSInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return intrinsic(in)
	}
	d1, d2 := in.d1d2()
	disc := in.K * math.Exp(-in.R*in.T)
	if in.Call {
		return in.S*normCDF(d1) - disc*normCDF(d2)
	}
	return disc*normCDF(-d2) - in.S*normCDF(-d1)
}

// BSVega dPrice/dSigma
func BSVega(in BSInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	d1, _ := in.d1d2()
	return in.S * normPDF(d1) * math.Sqrt(in.T)
}

// CalculateBSGreeks 闭式希腊值；到期后全部为零
func CalculateBSGreeks(in BSInput) BSGreeks {
	if in.T <= 0 || in.Sigma <= 0 {
		return BSGreeks{}
	}
	d1, d2 := in.d1d2()
	sqrtT := math.Sqrt(in.T)
	disc := in.K * math.Exp(-in.R*in.T)
	pdf := normPDF(d1)

	g := BSGreeks{
		Gamma: pdf / (in.S * in.Sigma * sqrtT),
		Vega:  in.S * pdf * sqrtT,
	}
	decay := -(in.S * pdf * in.Sigma) / (2 * sqrtT)
	if in.Call {
		g.Delta = normCDF(d1)
		g.Theta = decay - in.R*disc*normCDF(d2)
		g.Rho = in.T * disc * normCDF(d2)
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = decay + in.R*disc*normCDF(-d2)
		g.Rho = -in.T * disc * normCDF(-d2)
	}
	return g
}

// ImpliedVol Newton-Raphson，以 Vega 为雅可比。
// 不收敛时返回最后一次的 sigma 和 false，不报错。
func ImpliedVol(price float64, in BSInput) (float64, bool) {
	sigma := ivInitialSigma
	if in.T <= 0 {
		return sigma, false
	}
	for i := 0; i < ivMaxIter; i++ {
		in.Sigma = sigma
		diff := BSPrice(in) - price
		if math.Abs(diff) < ivTolerance {
			return sigma, true
		}
		vega := BSVega(in)
		if vega < 1e-12 || math.IsNaN(vega) {
			return sigma, false
		}
		next := sigma - diff/vega
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return sigma, false
		}
		if next < ivMinSigma {
			next = ivMinSigma
		}
		sigma = next
	}
	return sigma, false
}

func intrinsic(in BSInput) float64 {
	if in.Call {
		return math.Max(in.S-in.K, 0)
	}
	return math.Max(in.K-in.S, 0)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
