package mls

import (
	"fmt"
	"path"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

//FigureFormats maps the supported figure types to graphviz formats.
var FigureFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
}

func recurrentDraw(g *cgraph.Graph, nodes []TreeNode, nodeNumber int, parentNode *cgraph.Node) error {
	currentNode, err := g.CreateNode(fmt.Sprint(nodeNumber))
	if err != nil {
		return err
	}

	if parentNode != nil {
		if _, err = g.CreateEdge("", parentNode, currentNode); err != nil {
			return err
		}
	}

	currentNode.Set("label", nodes[nodeNumber].GraphDescription())
	if nodes[nodeNumber].IsLeaf {
		currentNode.Set("shape", "box")
		return nil
	}
	if err = recurrentDraw(g, nodes, nodes[nodeNumber].Left, currentNode); err != nil {
		return err
	}
	return recurrentDraw(g, nodes, nodes[nodeNumber].Right, currentNode)
}

//DrawGraph converts a fitted tree into a graphviz graph. The caller closes both values.
func (tree *DecisionTree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	if !tree.fitted {
		return nil, nil, ErrNotFitted
	}
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, err
	}

	if err = recurrentDraw(graph, tree.nodes, 0, nil); err != nil {
		_ = graph.Close()
		_ = graphViz.Close()
		return nil, nil, err
	}
	return graphViz, graph, nil
}

//RenderTrees writes every tree to picturesDirectory as dumpPrefix_00000.figureType,
//dumpPrefix_00001.figureType and so on. It returns the written file names.
func RenderTrees(trees []*DecisionTree, dumpPrefix, figureType, picturesDirectory string) ([]string, error) {
	graphvizType, ok := FigureFormats[figureType]
	if !ok {
		return nil, invalidArgument("unknown figure type %q", figureType)
	}

	var written []string
	for graphInd, currentTree := range trees {
		filename := path.Join(picturesDirectory, fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType))
		if err := renderOne(currentTree, graphvizType, filename); err != nil {
			return written, errors.Wrapf(err, "render tree %d", graphInd)
		}
		written = append(written, filename)
	}
	return written, nil
}

func renderOne(tree *DecisionTree, format graphviz.Format, filename string) error {
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return graphViz.RenderFilename(graph, format, filename)
}

//Renderable is implemented by every model made of decision trees.
type Renderable interface {
	Trees() []*DecisionTree
}
