package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

func ProbeCmd() *cobra.Command {
	var (
		x, z, y float32
		radius  float32
	)
	c := &cobra.Command{
		Use:   "probe <scene.yaml | map.gat | map>",
		Short: "Sample the ground and capsule contacts at a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mp, err := loadWorld(args[0])
			if err != nil {
				return err
			}
			if mp.Mesh == nil {
				return errors.New("map has no collision mesh")
			}
			coll := cfg.Collision.ToCollision().Normalize()
			out := cmd.OutOrStdout()

			// Without --y, probe down from above the highest geometry.
			from := y
			if !cmd.Flags().Changed("y") {
				_, hi := mp.Mesh.Bounds()
				from = max(hi.Y, 0) + 1
			}

			fmt.Fprintf(out, "map %s, %d triangles\n", mp.Name, mp.Mesh.TriangleCount())
			if mp.Grid != nil {
				if cell := mp.Grid.Cell(x, z); cell != nil {
					fmt.Fprintf(out, "cell: %s, height %.2f\n", cell.Type, mp.Grid.HeightAt(x, z))
				}
			}

			ctx := collision.NewContext()
			feet := math.Vec3{X: x, Y: from, Z: z}
			g, ok := collision.SampleGround(ctx, feet, mp.Mesh, coll)
			if !ok {
				fmt.Fprintf(out, "ground: none below (%.2f, %.2f, %.2f)\n", x, from, z)
				return nil
			}
			angle := g.Angle()
			feet.Y = g.HeightAt(x, z) + g.Clearance
			fmt.Fprintf(out, "ground: y %.2f, normal (%.3f, %.3f, %.3f), %.1f°, triangle %d, material %d\n",
				feet.Y, g.Normal.X, g.Normal.Y, g.Normal.Z, degrees(angle), g.TriangleID, mp.Mesh.Material(g.TriangleID))
			switch {
			case g.Walkable(coll.MaxGroundAngleRad):
				fmt.Fprintln(out, "surface: walkable")
			case angle <= coll.MaxSlideAngleRad:
				fmt.Fprintln(out, "surface: slides")
			default:
				fmt.Fprintln(out, "surface: too steep")
			}

			contacts := collision.QueryCapsule(mp.Mesh, feet, nil, radius, coll, nil)
			if len(contacts) == 0 {
				fmt.Fprintln(out, "contacts: none")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HEIGHT\tKIND\tDISTANCE\tTRIANGLE\tMATERIAL\tNORMAL")
			for _, ct := range contacts {
				fmt.Fprintf(tw, "%.1f\t%s\t%.2f\t%d\t%d\t(%.3f, %.3f, %.3f)\n",
					ct.Height, ct.Kind, ct.Distance, ct.TriangleID, mp.Mesh.Material(ct.TriangleID),
					ct.Normal.X, ct.Normal.Y, ct.Normal.Z)
			}
			return tw.Flush()
		},
	}
	c.Flags().Float32VarP(&x, "x", "x", 0, "World X")
	c.Flags().Float32VarP(&z, "z", "z", 0, "World Z")
	c.Flags().Float32Var(&y, "y", 0, "Probe start height (default: above the mesh)")
	c.Flags().Float32Var(&radius, "query-radius", 0, "Capsule radius (default: collision radius)")
	return c
}
