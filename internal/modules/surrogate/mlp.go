package surrogate

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MLPConfig sets the network shape and training schedule. The defaults
// mirror a small two-hidden-layer regressor trained with Adam.
type MLPConfig struct {
	HiddenLayers []int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

// DefaultMLPConfig returns the standard surrogate network settings.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{
		HiddenLayers: []int{64, 32},
		LearningRate: 1e-3,
		Epochs:       200,
		BatchSize:    32,
		Seed:         1,
	}
}

// MLP is a feed-forward regression network: ReLU hidden layers, a
// linear output, mean squared error loss, Adam updates.
type MLP struct {
	cfg     MLPConfig
	weights []*mat.Dense // weights[l]: out_l x in_l
	biases  []*mat.VecDense

	// Adam state
	mW, vW []*mat.Dense
	mB, vB []*mat.VecDense
	step   int
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// NewMLP builds a network for the given input width.
func NewMLP(inputs int, cfg MLPConfig) (*MLP, error) {
	if inputs <= 0 {
		return nil, fmt.Errorf("network needs at least one input")
	}
	if len(cfg.HiddenLayers) == 0 {
		cfg.HiddenLayers = DefaultMLPConfig().HiddenLayers
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1e-3
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 200
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	sizes := append([]int{inputs}, cfg.HiddenLayers...)
	sizes = append(sizes, 1)

	rng := rand.New(rand.NewSource(cfg.Seed))

	m := &MLP{cfg: cfg}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]

		// He initialization suits ReLU layers.
		scale := math.Sqrt(2.0 / float64(in))
		data := make([]float64, out*in)
		for i := range data {
			data[i] = rng.NormFloat64() * scale
		}

		m.weights = append(m.weights, mat.NewDense(out, in, data))
		m.biases = append(m.biases, mat.NewVecDense(out, nil))
		m.mW = append(m.mW, mat.NewDense(out, in, nil))
		m.vW = append(m.vW, mat.NewDense(out, in, nil))
		m.mB = append(m.mB, mat.NewVecDense(out, nil))
		m.vB = append(m.vB, mat.NewVecDense(out, nil))
	}

	return m, nil
}

// Fit trains the network on scaled features and targets.
func (m *MLP) Fit(features [][]float64, targets []float64) error {
	if len(features) != len(targets) {
		return fmt.Errorf("feature/target length mismatch: %d vs %d", len(features), len(targets))
	}
	if len(features) == 0 {
		return fmt.Errorf("no training data")
	}

	rng := rand.New(rand.NewSource(m.cfg.Seed + 1))
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += m.cfg.BatchSize {
			end := start + m.cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			m.trainBatch(features, targets, order[start:end])
		}
	}

	return nil
}

// trainBatch accumulates gradients over one mini-batch and applies a
// single Adam step.
func (m *MLP) trainBatch(features [][]float64, targets []float64, batch []int) {
	gradW := make([]*mat.Dense, len(m.weights))
	gradB := make([]*mat.VecDense, len(m.biases))
	for l := range m.weights {
		r, c := m.weights[l].Dims()
		gradW[l] = mat.NewDense(r, c, nil)
		gradB[l] = mat.NewVecDense(r, nil)
	}

	for _, idx := range batch {
		activations, preacts := m.forward(features[idx])
		m.backward(activations, preacts, targets[idx], gradW, gradB)
	}

	scale := 1.0 / float64(len(batch))
	m.step++
	for l := range m.weights {
		m.adamUpdate(m.weights[l], gradW[l], m.mW[l], m.vW[l], scale)
		m.adamUpdateVec(m.biases[l], gradB[l], m.mB[l], m.vB[l], scale)
	}
}

// forward runs one sample through the network, keeping activations and
// pre-activations for backprop. activations[0] is the input.
func (m *MLP) forward(input []float64) ([]*mat.VecDense, []*mat.VecDense) {
	activations := []*mat.VecDense{mat.NewVecDense(len(input), append([]float64(nil), input...))}
	preacts := []*mat.VecDense{nil}

	for l := range m.weights {
		rows, _ := m.weights[l].Dims()
		z := mat.NewVecDense(rows, nil)
		z.MulVec(m.weights[l], activations[l])
		z.AddVec(z, m.biases[l])
		preacts = append(preacts, z)

		a := mat.NewVecDense(rows, nil)
		if l == len(m.weights)-1 {
			a.CopyVec(z) // linear output
		} else {
			for i := 0; i < rows; i++ {
				a.SetVec(i, relu(z.AtVec(i)))
			}
		}
		activations = append(activations, a)
	}

	return activations, preacts
}

// backward accumulates MSE gradients for one sample.
func (m *MLP) backward(activations, preacts []*mat.VecDense, target float64, gradW []*mat.Dense, gradB []*mat.VecDense) {
	last := len(m.weights) - 1

	// dL/dz for the output layer under 0.5*(y-t)^2.
	delta := mat.NewVecDense(1, []float64{activations[last+1].AtVec(0) - target})

	for l := last; l >= 0; l-- {
		// Accumulate gradients: dW = delta * a_prev^T, db = delta.
		var outer mat.Dense
		outer.Outer(1, delta, activations[l])
		gradW[l].Add(gradW[l], &outer)
		gradB[l].AddVec(gradB[l], delta)

		if l == 0 {
			break
		}

		rows := activations[l].Len()
		next := mat.NewVecDense(rows, nil)
		next.MulVec(m.weights[l].T(), delta)
		for i := 0; i < rows; i++ {
			if preacts[l].AtVec(i) <= 0 {
				next.SetVec(i, 0)
			}
		}
		delta = next
	}
}

func (m *MLP) adamUpdate(w, grad, mo, ve *mat.Dense, scale float64) {
	rows, cols := w.Dims()
	correct1 := 1 - math.Pow(adamBeta1, float64(m.step))
	correct2 := 1 - math.Pow(adamBeta2, float64(m.step))

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g := grad.At(i, j) * scale
			mv := adamBeta1*mo.At(i, j) + (1-adamBeta1)*g
			vv := adamBeta2*ve.At(i, j) + (1-adamBeta2)*g*g
			mo.Set(i, j, mv)
			ve.Set(i, j, vv)
			w.Set(i, j, w.At(i, j)-m.cfg.LearningRate*(mv/correct1)/(math.Sqrt(vv/correct2)+adamEps))
		}
	}
}

func (m *MLP) adamUpdateVec(b, grad, mo, ve *mat.VecDense, scale float64) {
	correct1 := 1 - math.Pow(adamBeta1, float64(m.step))
	correct2 := 1 - math.Pow(adamBeta2, float64(m.step))

	for i := 0; i < b.Len(); i++ {
		g := grad.AtVec(i) * scale
		mv := adamBeta1*mo.AtVec(i) + (1-adamBeta1)*g
		vv := adamBeta2*ve.AtVec(i) + (1-adamBeta2)*g*g
		mo.SetVec(i, mv)
		ve.SetVec(i, vv)
		b.SetVec(i, b.AtVec(i)-m.cfg.LearningRate*(mv/correct1)/(math.Sqrt(vv/correct2)+adamEps))
	}
}

// Predict returns the network's output for one scaled feature vector.
func (m *MLP) Predict(features []float64) float64 {
	activations, _ := m.forward(features)
	return activations[len(activations)-1].AtVec(0)
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
