package gpu

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/placer/rt/bounds"
	"github.com/gekko3d/placer/rt/instance"
)

//go:embed box.wgsl
var boxWGSL string

const cameraUniformSize = 64

// BoxRenderPass draws every instance slot as the outline of one local box.
type BoxRenderPass struct {
	Device       *wgpu.Device
	Pipeline     *wgpu.RenderPipeline
	VertexBuffer *wgpu.Buffer
	VertexCount  uint32
	CameraBuffer *wgpu.Buffer
	BindGroup    *wgpu.BindGroup
}

func NewBoxRenderPass(device *wgpu.Device, format wgpu.TextureFormat, local bounds.AABB) (*BoxRenderPass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BoxShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: boxWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer shaderModule.Release()

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BoxCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer bgl.Release()

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BoxPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 12,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					},
				},
				{
					ArrayStride: instance.SlotStride,
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 3},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 5},
						{Format: wgpu.VertexFormatUint32, Offset: 64, ShaderLocation: 6},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	p := &BoxRenderPass{Device: device, Pipeline: pipeline}

	verts := BoxOutline(local)
	p.VertexCount = uint32(len(verts))
	vdata := make([]byte, len(verts)*12)
	for i, v := range verts {
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint32(vdata[i*12+j*4:], math.Float32bits(v[j]))
		}
	}
	p.VertexBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BoxOutlineVertexBuffer",
		Size:  uint64(len(vdata)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	device.GetQueue().WriteBuffer(p.VertexBuffer, 0, vdata)

	p.CameraBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BoxCameraBuffer",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	p.BindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BoxCameraBG",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.CameraBuffer, Size: cameraUniformSize},
		},
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// BoxOutline returns the 12 edges of box as a line list.
func BoxOutline(box bounds.AABB) []mgl32.Vec3 {
	c := box.Corners()
	// Corner index bits: 0 is Z, 1 is Y, 2 is X.
	edges := [12][2]int{
		{0, 1}, {2, 3}, {4, 5}, {6, 7},
		{0, 2}, {1, 3}, {4, 6}, {5, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	out := make([]mgl32.Vec3, 0, 24)
	for _, e := range edges {
		out = append(out, c[e[0]], c[e[1]])
	}
	return out
}

func (p *BoxRenderPass) SetCamera(viewProj mgl32.Mat4) {
	buf := make([]byte, cameraUniformSize)
	for i, f := range viewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	p.Device.GetQueue().WriteBuffer(p.CameraBuffer, 0, buf)
}

// Draw issues one instanced draw over the first count slots of instances.
func (p *BoxRenderPass) Draw(pass *wgpu.RenderPassEncoder, instances *InstanceBuffer, count int) {
	if instances.Buf == nil || count == 0 {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, p.VertexBuffer.GetSize())
	pass.SetVertexBuffer(1, instances.Buf, 0, instances.Buf.GetSize())
	pass.Draw(p.VertexCount, uint32(count), 0, 0)
}

func (p *BoxRenderPass) Release() {
	if p.BindGroup != nil {
		p.BindGroup.Release()
	}
	if p.CameraBuffer != nil {
		p.CameraBuffer.Release()
	}
	if p.VertexBuffer != nil {
		p.VertexBuffer.Release()
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
