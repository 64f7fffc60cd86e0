package tableau

// Linear (non-exponential) catalog. Coefficients are given in the compact
// form: row i feeds stage i+1, the last row is the combination, and the node
// list has one entry per stage. fromButcher pads them into the documented
// layout. These tableaus do not depend on the step parameters.

func init() {
	register("euler", func(Params) *Tableau {
		return fromButcher("euler", 1, [][]float64{
			{1},
		}, []float64{0})
	})

	register("midpoint_2s", func(Params) *Tableau {
		return fromButcher("midpoint_2s", 2, [][]float64{
			{1.0 / 2, 0},
			{0, 1},
		}, []float64{0, 1.0 / 2})
	})

	register("heun_2s", func(Params) *Tableau {
		return fromButcher("heun_2s", 2, [][]float64{
			{1, 0},
			{1.0 / 2, 1.0 / 2},
		}, []float64{0, 1})
	})

	register("ralston_2s", func(Params) *Tableau {
		return fromButcher("ralston_2s", 2, [][]float64{
			{2.0 / 3, 0},
			{1.0 / 4, 3.0 / 4},
		}, []float64{0, 2.0 / 3})
	})

	register("heun_3s", func(Params) *Tableau {
		return fromButcher("heun_3s", 3, [][]float64{
			{1.0 / 3, 0, 0},
			{0, 2.0 / 3, 0},
			{1.0 / 4, 0, 3.0 / 4},
		}, []float64{0, 1.0 / 3, 2.0 / 3})
	})

	register("kutta_3s", func(Params) *Tableau {
		return fromButcher("kutta_3s", 3, [][]float64{
			{1.0 / 2, 0, 0},
			{-1, 2, 0},
			{1.0 / 6, 2.0 / 3, 1.0 / 6},
		}, []float64{0, 1.0 / 2, 1})
	})

	register("ralston_3s", func(Params) *Tableau {
		return fromButcher("ralston_3s", 3, [][]float64{
			{1.0 / 2, 0, 0},
			{0, 3.0 / 4, 0},
			{2.0 / 9, 1.0 / 3, 4.0 / 9},
		}, []float64{0, 1.0 / 2, 3.0 / 4})
	})

	register("houwen-wray_3s", func(Params) *Tableau {
		return fromButcher("houwen-wray_3s", 3, [][]float64{
			{8.0 / 15, 0, 0},
			{1.0 / 4, 5.0 / 12, 0},
			{1.0 / 4, 0, 3.0 / 4},
		}, []float64{0, 8.0 / 15, 2.0 / 3})
	})

	register("ssprk3_3s", func(Params) *Tableau {
		return fromButcher("ssprk3_3s", 3, [][]float64{
			{1, 0, 0},
			{1.0 / 4, 1.0 / 4, 0},
			{1.0 / 6, 1.0 / 6, 2.0 / 3},
		}, []float64{0, 1, 1.0 / 2})
	})

	register("rk4_4s", func(Params) *Tableau {
		return fromButcher("rk4_4s", 4, [][]float64{
			{1.0 / 2, 0, 0, 0},
			{0, 1.0 / 2, 0, 0},
			{0, 0, 1, 0},
			{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		}, []float64{0, 1.0 / 2, 1.0 / 2, 1})
	})

	register("rk38_4s", func(Params) *Tableau {
		return fromButcher("rk38_4s", 4, [][]float64{
			{1.0 / 3, 0, 0, 0},
			{-1.0 / 3, 1, 0, 0},
			{1, -1, 1, 0},
			{1.0 / 8, 3.0 / 8, 3.0 / 8, 1.0 / 8},
		}, []float64{0, 1.0 / 3, 2.0 / 3, 1})
	})

	register("ralston_4s", func(Params) *Tableau {
		sqrt5 := 2.2360679774997896964091736687747
		return fromButcher("ralston_4s", 4, [][]float64{
			{2.0 / 5, 0, 0, 0},
			{(-2889 + 1428*sqrt5) / 1024, (3785 - 1620*sqrt5) / 1024, 0, 0},
			{(-3365 + 2094*sqrt5) / 6040, (-975 - 3046*sqrt5) / 2552, (467040 + 203968*sqrt5) / 240845, 0},
			{(263 + 24*sqrt5) / 1812, (125 - 1000*sqrt5) / 3828, (3426304 + 1661952*sqrt5) / 5924787, (30 - 4*sqrt5) / 123},
		}, []float64{0, 2.0 / 5, (14 - 3*sqrt5) / 16, 1})
	})

	register("dormand-prince_6s", func(Params) *Tableau {
		t := fromButcher("dormand-prince_6s", 5, [][]float64{
			{1.0 / 5, 0, 0, 0, 0, 0},
			{3.0 / 40, 9.0 / 40, 0, 0, 0, 0},
			{44.0 / 45, -56.0 / 15, 32.0 / 9, 0, 0, 0},
			{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729, 0, 0},
			{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656, 0},
			{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
		}, []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1})
		t.FSAL = true
		return t
	})

	register("dormand-prince_13s", func(Params) *Tableau {
		return fromButcher("dormand-prince_13s", 8, [][]float64{
			{1.0 / 18, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			{1.0 / 48, 1.0 / 16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			{1.0 / 32, 0, 3.0 / 32, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			{5.0 / 16, 0, -75.0 / 64, 75.0 / 64, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			{3.0 / 80, 0, 0, 3.0 / 16, 3.0 / 20, 0, 0, 0, 0, 0, 0, 0, 0},
			{29443841.0 / 614563906, 0, 0, 77736538.0 / 692538347, -28693883.0 / 1125000000, 23124283.0 / 1800000000, 0, 0, 0, 0, 0, 0, 0},
			{16016141.0 / 946692911, 0, 0, 61564180.0 / 158732637, 22789713.0 / 633445777, 545815736.0 / 2771057229, -180193667.0 / 1043307555, 0, 0, 0, 0, 0, 0},
			{39632708.0 / 573591083, 0, 0, -433636366.0 / 683701615, -421739975.0 / 2616292301, 100302831.0 / 723423059, 790204164.0 / 839813087, 800635310.0 / 3783071287, 0, 0, 0, 0, 0},
			{246121993.0 / 1340847787, 0, 0, -37695042795.0 / 15268766246, -309121744.0 / 1061227803, -12992083.0 / 490766935, 6005943493.0 / 2108947869, 393006217.0 / 1396673457, 123872331.0 / 1001029789, 0, 0, 0, 0},
			{-1028468189.0 / 846180014, 0, 0, 8478235783.0 / 508512852, 1311729495.0 / 1432422823, -10304129995.0 / 1701304382, -48777925059.0 / 3047939560, 15336726248.0 / 1032824649, -45442868181.0 / 3398467696, 3065993473.0 / 597172653, 0, 0, 0},
			{185892177.0 / 718116043, 0, 0, -3185094517.0 / 667107341, -477755414.0 / 1098053517, -703635378.0 / 230739211, 5731566787.0 / 1027545527, 5232866602.0 / 850066563, -4093664535.0 / 808688257, 3962137247.0 / 1805957418, 65686358.0 / 487910083, 0, 0},
			{403863854.0 / 491063109, 0, 0, -5068492393.0 / 434740067, -411421997.0 / 543043805, 652783627.0 / 914296604, 11173962825.0 / 925320556, -13158990841.0 / 6184727034, 3936647629.0 / 1978049680, -160528059.0 / 685178525, 248638103.0 / 1413531060, 0, 0},
			{14005451.0 / 335480064, 0, 0, 0, 0, -59238493.0 / 1068277825, 181606767.0 / 758867731, 561292985.0 / 797845732, -1041891430.0 / 1371343529, 760417239.0 / 1151165299, 118820643.0 / 751138087, -528747749.0 / 2220607170, 1.0 / 4},
		}, []float64{0, 1.0 / 18, 1.0 / 12, 1.0 / 8, 5.0 / 16, 3.0 / 8, 59.0 / 400, 93.0 / 200, 5490023248.0 / 9719169821, 13.0 / 20, 1201146811.0 / 1299019798, 1, 1})
	})
}
